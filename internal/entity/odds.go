package entity

import "time"

// MarketsResponse is the body of the event odds endpoint.
type MarketsResponse struct {
	Success FlexString `json:"success"`
	Results []Market   `json:"results"`
}

type Market struct {
	MarketID FlexString  `json:"market_id"`
	Odds     []MarketOdd `json:"odds"`
}

type MarketOdd struct {
	ID       FlexString `json:"id"`
	Handicap any        `json:"handicap"`
	Name     string     `json:"name"`
	Odds     any        `json:"odds"`
}

// LineSnapshot is the resolved line of one game at one poll.
type LineSnapshot struct {
	Spread        *float64   `json:"spread"`
	Total         *float64   `json:"total"`
	TimeStatus    TimeStatus `json:"time_status"`
	Quarter       *int       `json:"quarter"`
	TimeRemaining *string    `json:"time_remaining"`
	Timestamp     time.Time  `json:"timestamp"`
}

// SameLine reports whether spread, total and time status are unchanged.
func (s LineSnapshot) SameLine(o LineSnapshot) bool {
	return equalFloat(s.Spread, o.Spread) &&
		equalFloat(s.Total, o.Total) &&
		s.TimeStatus == o.TimeStatus
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type OpportunityType string

const (
	OpportunityNeutral OpportunityType = "neutral"
	OpportunityGreen   OpportunityType = "green"
	OpportunityRed     OpportunityType = "red"
	OpportunityBlue    OpportunityType = "blue"
)

// Opportunity is the latest movement classification of a game.
type Opportunity struct {
	Type       OpportunityType `json:"type"`
	Reason     string          `json:"reason"`
	SpreadDiff float64         `json:"spread_diff"`
	TotalDiff  float64         `json:"total_diff"`
	TimeStatus TimeStatus      `json:"time_status"`
	Timestamp  time.Time       `json:"timestamp"`
}
