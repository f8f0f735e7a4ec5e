package detect

import (
	"context"
	"fmt"
	"math"
	"time"

	"livebets/line_tracker/internal/entity"

	"github.com/rs/zerolog"
)

const (
	SpreadThreshold = 7.0
	TotalThreshold  = 10.0
)

type HistoryReader interface {
	Read(ctx context.Context, id string) ([]entity.LineSnapshot, error)
}

// Detector classifies how far the current line of a game moved away from
// its opening line.
type Detector struct {
	history HistoryReader
	logger  *zerolog.Logger
	now     func() time.Time
}

func New(history HistoryReader, logger *zerolog.Logger) *Detector {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Detector{
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// Evaluate returns nil while the game has fewer than two history entries.
// A failed history read gives a neutral opportunity with zero diffs.
func (d *Detector) Evaluate(ctx context.Context, id string, current entity.LineSnapshot) *entity.Opportunity {
	entries, err := d.history.Read(ctx, id)
	if err != nil {
		d.logger.Warn().Err(err).Str("game_id", id).Msg("evaluate opportunity")
		return &entity.Opportunity{
			Type:       entity.OpportunityNeutral,
			TimeStatus: current.TimeStatus,
			Timestamp:  d.now(),
		}
	}
	if len(entries) < 2 {
		return nil
	}

	opening := entries[0]
	spreadDiff := diff(current.Spread, opening.Spread)
	totalDiff := diff(current.Total, opening.Total)
	kind, reason := Classify(spreadDiff, totalDiff)

	return &entity.Opportunity{
		Type:       kind,
		Reason:     reason,
		SpreadDiff: spreadDiff,
		TotalDiff:  totalDiff,
		TimeStatus: current.TimeStatus,
		Timestamp:  d.now(),
	}
}

// Classify applies the movement thresholds. Spread is checked first.
func Classify(spreadDiff, totalDiff float64) (entity.OpportunityType, string) {
	switch {
	case math.Abs(spreadDiff) >= SpreadThreshold:
		return entity.OpportunityGreen, fmt.Sprintf("Significant spread movement: %.1f points", spreadDiff)
	case math.Abs(totalDiff) >= TotalThreshold:
		return entity.OpportunityGreen, fmt.Sprintf("Significant total movement: %.1f points", totalDiff)
	default:
		return entity.OpportunityNeutral, ""
	}
}

func diff(current, opening *float64) float64 {
	if current == nil || opening == nil {
		return 0
	}
	return *current - *opening
}
