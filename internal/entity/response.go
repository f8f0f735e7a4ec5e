package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// InplayResponse is the envelope of the in-play and event detail endpoints.
// Results stay raw so one malformed game does not sink the whole poll.
type InplayResponse struct {
	Success json.RawMessage   `json:"success,omitempty"`
	Pager   json.RawMessage   `json:"pager,omitempty"`
	Results []json.RawMessage `json:"results"`
}

// Game decodes result i.
func (r *InplayResponse) Game(i int) (*RawGame, error) {
	game := &RawGame{}
	if err := json.Unmarshal(r.Results[i], game); err != nil {
		return nil, fmt.Errorf("result %d: %w", i, err)
	}
	return game, nil
}

// CountByStatus counts results per time status without fully decoding them.
func (r *InplayResponse) CountByStatus() map[TimeStatus]int {
	counts := make(map[TimeStatus]int)
	for _, raw := range r.Results {
		var head struct {
			TimeStatus TimeStatus `json:"time_status"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			continue
		}
		counts[head.TimeStatus]++
	}
	return counts
}

type BatchMeta struct {
	Processed int       `json:"processed"`
	Errors    int       `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}

// Batch is one processed poll: the upstream envelope with annotated games.
// Results that could not be annotated are echoed back as received.
type Batch struct {
	Success json.RawMessage `json:"success,omitempty"`
	Pager   json.RawMessage `json:"pager,omitempty"`
	Results []AnnotatedGame `json:"results"`
	Meta    BatchMeta       `json:"_meta"`

	Upstream *InplayResponse `json:"-"`
}

// GameDetail is the event detail envelope with its first result annotated.
type GameDetail struct {
	Success json.RawMessage `json:"success,omitempty"`
	Pager   json.RawMessage `json:"pager,omitempty"`
	Results []AnnotatedGame `json:"results"`
}

type Stats struct {
	OpportunityPercentage int `json:"opportunity_percentage"`
	GreenOpportunities    int `json:"green_opportunities"`
	RedOpportunities      int `json:"red_opportunities"`
	BlueOpportunities     int `json:"blue_opportunities"`
	TotalLive             int `json:"total_live"`
	TotalUpcoming         int `json:"total_upcoming"`
}

// ProviderCheck is the result of a manual probe of the odds provider.
type ProviderCheck struct {
	Status          string          `json:"status"`
	Message         string          `json:"message,omitempty"`
	TotalGames      int             `json:"total_games,omitempty"`
	LiveGames       int             `json:"live_games,omitempty"`
	UpcomingGames   int             `json:"upcoming_games,omitempty"`
	FirstGameSample json.RawMessage `json:"first_game_sample,omitempty"`
	RawResponse     *InplayResponse `json:"raw_response,omitempty"`
	ResponseText    string          `json:"response_text,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// LineOdds is the formatted result of a dedicated odds lookup.
type LineOdds struct {
	Spread    *float64  `json:"spread"`
	Total     *float64  `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}
