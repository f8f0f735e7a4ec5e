package parse

import (
	"context"
	"time"

	"livebets/line_tracker/internal/entity"

	"github.com/rs/zerolog"
)

// MarketFetcher returns the market data of a bet365 event.
type MarketFetcher interface {
	FetchMarkets(ctx context.Context, bet365ID string) (*entity.MarketsResponse, error)
}

// step fills whatever fields of the snapshot it can. An error only means
// the signal was unusable; the cascade moves on.
type step struct {
	name string
	run  func(ctx context.Context, game *entity.RawGame, snap *entity.LineSnapshot) error
}

// Resolver derives a best-effort spread and total for a game from a fixed
// priority list of signals. A later signal never overrides a field an
// earlier one set.
type Resolver struct {
	markets MarketFetcher
	logger  *zerolog.Logger
	now     func() time.Time
	steps   []step
}

// New returns a resolver. markets may be nil, in which case the dedicated
// odds lookup is skipped.
func New(markets MarketFetcher, logger *zerolog.Logger) *Resolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &Resolver{
		markets: markets,
		logger:  logger,
		now:     time.Now,
	}
	r.steps = []step{
		{name: "odds_lookup", run: r.lookupMarkets},
		{name: "inline_markets", run: inlineMarkets},
		{name: "extra_handicap", run: extraHandicap},
		{name: "alternate_keys", run: alternateKeys},
		{name: "score_estimate", run: scoreEstimate},
		{name: "league_average", run: leagueAverage},
	}
	return r
}

// Resolve never fails. Spread and total are rounded to the nearest half
// point; quarter and clock are copied from the live timer.
func (r *Resolver) Resolve(ctx context.Context, game *entity.RawGame) entity.LineSnapshot {
	snap := entity.LineSnapshot{
		TimeStatus: game.TimeStatus,
		Timestamp:  r.now(),
	}
	timer, err := game.TimerFields()
	if err != nil {
		r.logger.Debug().Err(err).
			Str("game_id", string(game.ID)).
			Msg("timer skipped")
	}
	if timer != nil {
		snap.Quarter = toQuarter(timer.Quarter)
		snap.TimeRemaining = toClock(timer.Remaining)
	}

	for _, s := range r.steps {
		if complete(&snap) {
			break
		}
		if err := s.run(ctx, game, &snap); err != nil {
			r.logger.Debug().Err(err).
				Str("game_id", string(game.ID)).
				Str("step", s.name).
				Msg("line signal skipped")
		}
	}

	snap.Spread = roundHalfPtr(snap.Spread)
	snap.Total = roundHalfPtr(snap.Total)
	return snap
}

func complete(snap *entity.LineSnapshot) bool {
	return snap.Spread != nil && snap.Total != nil
}

func roundHalfPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	rounded := RoundHalf(*v)
	return &rounded
}
