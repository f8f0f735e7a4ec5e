package annotate

import (
	"context"
	"math"

	"livebets/line_tracker/internal/entity"

	"github.com/rs/zerolog"
)

const (
	SpreadFlagThreshold   = 7.0
	TotalFlagThreshold    = 10.0
	OpeningDriftThreshold = 1.0
)

type HistoryReader interface {
	Read(ctx context.Context, id string) ([]entity.LineSnapshot, error)
}

// Annotator decorates games with their stored line history.
type Annotator struct {
	history HistoryReader
	logger  *zerolog.Logger
}

func New(history HistoryReader, logger *zerolog.Logger) *Annotator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Annotator{
		history: history,
		logger:  logger,
	}
}

// Annotate reads the history of game and merges it with opp. A failed read
// annotates as if the game had no history.
func (a *Annotator) Annotate(ctx context.Context, game *entity.RawGame, opp *entity.Opportunity) entity.AnnotatedGame {
	entries, err := a.history.Read(ctx, string(game.ID))
	if err != nil {
		a.logger.Warn().Err(err).Str("game_id", string(game.ID)).Msg("annotate without history")
		entries = nil
	}
	return Build(game, entries, opp)
}

// Build is the pure part of Annotate. The first entry is the opening line,
// the second the start line (the opening again when there is only one) and
// the last the live line.
func Build(game *entity.RawGame, history []entity.LineSnapshot, opp *entity.Opportunity) entity.AnnotatedGame {
	ann := entity.LineAnnotation{
		SpreadDirection:   entity.DirectionNeutral,
		TotalDirection:    entity.DirectionNeutral,
		SpreadFlag:        entity.FlagNeutral,
		OUFlag:            entity.FlagNeutral,
		OpeningVsStart:    entity.FlagNeutral,
		OpportunityType:   entity.OpportunityNeutral,
		OpportunityReason: "",
	}

	if len(history) > 0 {
		opening := history[0]
		start := opening
		if len(history) > 1 {
			start = history[1]
		}
		live := history[len(history)-1]

		ann.OpeningSpread, ann.OpeningTotal = opening.Spread, opening.Total
		ann.StartSpread, ann.StartTotal = start.Spread, start.Total
		ann.LiveSpread, ann.LiveTotal = live.Spread, live.Total

		ann.LiveSpreadDiff = diff(live.Spread, opening.Spread)
		ann.LiveTotalDiff = diff(live.Total, opening.Total)
		ann.SpreadDirection = direction(ann.LiveSpreadDiff)
		ann.TotalDirection = direction(ann.LiveTotalDiff)
		ann.SpreadFlag = flag(ann.LiveSpreadDiff, SpreadFlagThreshold)
		ann.OUFlag = flag(ann.LiveTotalDiff, TotalFlagThreshold)
		ann.OpeningVsStart = flag(diff(start.Spread, opening.Spread), OpeningDriftThreshold)
	}

	if opp != nil {
		if opp.Type != "" {
			ann.OpportunityType = opp.Type
		}
		ann.OpportunityReason = opp.Reason
	}

	return entity.AnnotatedGame{Game: game, LineAnnotation: ann}
}

func diff(a, b *float64) float64 {
	if a == nil || b == nil {
		return 0
	}
	return *a - *b
}

func direction(d float64) entity.Direction {
	switch {
	case d > 0:
		return entity.DirectionUp
	case d < 0:
		return entity.DirectionDown
	default:
		return entity.DirectionNeutral
	}
}

func flag(d, threshold float64) entity.Flag {
	if math.Abs(d) >= threshold {
		return entity.FlagGreen
	}
	return entity.FlagNeutral
}
