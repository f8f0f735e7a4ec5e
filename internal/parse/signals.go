package parse

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"livebets/line_tracker/internal/entity"
)

const (
	SpreadMarketID = "18_1"
	TotalMarketID  = "18_2"

	// Points added away from the current margin when the spread has to be
	// guessed from the score.
	scoreSafetyMargin = 3.5
	// Inflation applied to a total extrapolated from the current score.
	totalInflation     = 1.05
	regulationQuarters = 4.0
)

var (
	spreadKeys = []string{"handicap", "handicap_line", "ah", "point_spread"}
	totalKeys  = []string{"total", "total_line", "ou"}
)

func (r *Resolver) lookupMarkets(ctx context.Context, game *entity.RawGame, snap *entity.LineSnapshot) error {
	id := string(game.Bet365ID)
	if id == "" || r.markets == nil {
		return nil
	}

	resp, err := r.markets.FetchMarkets(ctx, id)
	if err != nil {
		return fmt.Errorf("odds lookup for %s: %w", id, err)
	}

	spread, total := ScanMarkets(resp)
	if snap.Spread == nil && spread != nil {
		snap.Spread = spread
		r.logger.Debug().Str("game_id", string(game.ID)).Float64("spread", *spread).Msg("spread from odds lookup")
	}
	if snap.Total == nil && total != nil {
		snap.Total = total
		r.logger.Debug().Str("game_id", string(game.ID)).Float64("total", *total).Msg("total from odds lookup")
	}
	return nil
}

// ScanMarkets extracts the spread and the over line from event odds. The
// first entry with a numeric handicap wins; for the total only "Over"
// entries count.
func ScanMarkets(resp *entity.MarketsResponse) (spread, total *float64) {
	if resp == nil {
		return nil, nil
	}
	for _, market := range resp.Results {
		switch string(market.MarketID) {
		case SpreadMarketID:
			if spread != nil {
				continue
			}
			for _, odd := range market.Odds {
				if v, ok := toNumber(odd.Handicap); ok {
					spread = &v
					break
				}
			}
		case TotalMarketID:
			if total != nil {
				continue
			}
			for _, odd := range market.Odds {
				if odd.Name != "Over" {
					continue
				}
				if v, ok := toNumber(odd.Handicap); ok {
					total = &v
					break
				}
			}
		}
	}
	return spread, total
}

func inlineMarkets(_ context.Context, game *entity.RawGame, snap *entity.LineSnapshot) error {
	odds, err := game.OddsFields()
	if err != nil {
		return fmt.Errorf("inline odds: %w", err)
	}
	if odds == nil {
		return nil
	}

	for _, key := range odds.Keys() {
		value, _ := odds.Get(key)
		switch {
		case snap.Spread == nil && slices.Contains(spreadKeys, key):
			if v, ok := toNumber(value); ok {
				snap.Spread = &v
			}
		case snap.Total == nil && slices.Contains(totalKeys, key):
			if v, ok := toNumber(value); ok {
				snap.Total = &v
			}
		}
	}
	return nil
}

func extraHandicap(_ context.Context, game *entity.RawGame, snap *entity.LineSnapshot) error {
	if snap.Spread != nil {
		return nil
	}
	extra, err := game.ExtraFields()
	if err != nil {
		return fmt.Errorf("extra: %w", err)
	}
	if extra == nil {
		return nil
	}
	if value, ok := extra.Get("handicap"); ok {
		if v, ok := toNumber(value); ok {
			snap.Spread = &v
		}
	}
	return nil
}

func alternateKeys(_ context.Context, game *entity.RawGame, snap *entity.LineSnapshot) error {
	odds, err := game.OddsFields()
	if err != nil {
		return fmt.Errorf("inline odds: %w", err)
	}
	if odds == nil {
		return nil
	}

	if snap.Spread == nil {
		for _, key := range odds.Keys() {
			k := strings.ToLower(key)
			if !(strings.Contains(k, "ah") || strings.Contains(k, "handicap")) || !strings.Contains(k, "home") {
				continue
			}
			value, _ := odds.Get(key)
			if v, ok := toNumber(value); ok {
				snap.Spread = &v
				break
			}
		}
	}

	if snap.Total == nil {
		for _, key := range odds.Keys() {
			k := strings.ToLower(key)
			if !strings.Contains(k, "total") || !strings.Contains(k, "over") {
				continue
			}
			value, _ := odds.Get(key)
			if v, ok := toNumber(value); ok {
				snap.Total = &v
				break
			}
		}
	}
	return nil
}

func scoreEstimate(_ context.Context, game *entity.RawGame, snap *entity.LineSnapshot) error {
	score, err := game.ScoreText()
	if err != nil || score == "" {
		return err
	}
	home, away, err := parseScore(score)
	if err != nil {
		return err
	}

	if snap.Spread == nil {
		spread := EstimateSpread(home, away)
		snap.Spread = &spread
	}

	if snap.Total == nil && snap.Quarter != nil && *snap.Quarter > 0 {
		total := EstimateTotal(home, away, *snap.Quarter)
		snap.Total = &total
	}
	return nil
}

// EstimateSpread moves the current margin a safety margin further from zero.
func EstimateSpread(home, away int) float64 {
	diff := float64(home - away)
	if diff > 0 {
		return roundTenth(diff + scoreSafetyMargin)
	}
	return roundTenth(diff - scoreSafetyMargin)
}

// EstimateTotal extrapolates the combined score to four quarters and
// inflates it. quarter must be positive.
func EstimateTotal(home, away, quarter int) float64 {
	current := float64(home + away)
	estimated := current * (regulationQuarters / float64(quarter))
	return roundTenth(estimated * totalInflation)
}

func leagueAverage(_ context.Context, game *entity.RawGame, snap *entity.LineSnapshot) error {
	if snap.Total != nil {
		return nil
	}
	league, err := game.LeagueInfo()
	if err != nil || league == nil {
		return err
	}
	total := LeagueAverageTotal(league.Name)
	snap.Total = &total
	return nil
}

var errBadScore = errors.New("malformed score")

// parseScore reads a "home-away" score string.
func parseScore(score string) (home, away int, err error) {
	parts := strings.Split(score, "-")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", errBadScore, score)
	}
	home, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", errBadScore, score)
	}
	away, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", errBadScore, score)
	}
	return home, away, nil
}
