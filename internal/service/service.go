package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"livebets/line_tracker/internal/annotate"
	"livebets/line_tracker/internal/api"
	"livebets/line_tracker/internal/detect"
	"livebets/line_tracker/internal/entity"
	"livebets/line_tracker/internal/parse"
	"livebets/line_tracker/internal/storage"

	"github.com/rs/zerolog"
)

var (
	ErrNoGames         = errors.New("no games available now")
	ErrOddsUnavailable = errors.New("odds data not available")
)

// Provider is the odds feed the pipeline polls.
type Provider interface {
	FetchGames(ctx context.Context) (*entity.InplayResponse, error)
	FetchGame(ctx context.Context, id string) (*entity.InplayResponse, error)
	FetchMarkets(ctx context.Context, bet365ID string) (*entity.MarketsResponse, error)
	Probe(ctx context.Context) error
}

type Service struct {
	provider  Provider
	resolver  *parse.Resolver
	history   *storage.HistoryStore
	opps      *storage.OpportunityStore
	detector  *detect.Detector
	annotator *annotate.Annotator
	sendChan  chan<- entity.Batch
	logger    *zerolog.Logger
	now       func() time.Time
}

// New wires the pipeline. sendChan may be nil when nobody listens for
// processed batches.
func New(
	provider Provider,
	history *storage.HistoryStore,
	opps *storage.OpportunityStore,
	sendChan chan<- entity.Batch,
	logger *zerolog.Logger,
) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		provider:  provider,
		resolver:  parse.New(provider, logger),
		history:   history,
		opps:      opps,
		detector:  detect.New(history, logger),
		annotator: annotate.New(history, logger),
		sendChan:  sendChan,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessGames runs one poll. Only a failure of the whole poll is returned.
// With ErrNoGames the batch still carries the upstream envelope.
func (s *Service) ProcessGames(ctx context.Context) (*entity.Batch, error) {
	start := s.now()

	resp, err := s.provider.FetchGames(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("[Service.ProcessGames] error fetch games")
		return nil, err
	}
	if len(resp.Results) == 0 {
		s.logger.Warn().Msg("[Service.ProcessGames] no results from provider")
		return &entity.Batch{Success: resp.Success, Pager: resp.Pager, Upstream: resp}, ErrNoGames
	}

	counts := resp.CountByStatus()
	s.logger.Info().
		Int("games", len(resp.Results)).
		Int("live", counts[entity.StatusLive]).
		Int("upcoming", counts[entity.StatusNotStarted]).
		Msg("received games")

	// Every upstream result stays in the batch; the ones that cannot be
	// annotated are passed through.
	results := make([]entity.AnnotatedGame, 0, len(resp.Results))
	var processed, failed int
	for i, raw := range resp.Results {
		game, err := resp.Game(i)
		if err != nil {
			s.logger.Error().Err(err).Msg("[Service.ProcessGames] error decode game")
			failed++
			results = append(results, entity.Unannotated(raw))
			continue
		}
		if game.ID == "" {
			s.logger.Warn().Msg("found game without id")
			results = append(results, entity.Unannotated(raw))
			continue
		}
		results = append(results, s.ProcessGame(ctx, game))
		processed++
	}

	batch := &entity.Batch{
		Success: resp.Success,
		Pager:   resp.Pager,
		Results: results,
		Meta: entity.BatchMeta{
			Processed: processed,
			Errors:    failed,
			Timestamp: s.now(),
		},
		Upstream: resp,
	}

	s.logger.Info().
		Int("processed", batch.Meta.Processed).
		Int("errors", batch.Meta.Errors).
		Dur("elapsed", time.Since(start)).
		Msg("data processing completed")

	s.publish(batch)
	return batch, nil
}

// ProcessGame resolves, records and annotates one game. Store faults are
// logged and never stop the game from being annotated.
func (s *Service) ProcessGame(ctx context.Context, game *entity.RawGame) entity.AnnotatedGame {
	id := string(game.ID)
	logger := s.logger.With().Str("game_id", id).Logger()

	snap := s.resolver.Resolve(ctx, game)

	changed, err := s.history.Record(ctx, id, snap)
	if err != nil {
		logger.Warn().Err(err).Msg("line history not persisted")
	}

	if changed {
		opp := s.detector.Evaluate(ctx, id, snap)
		if opp != nil && opp.Type != entity.OpportunityNeutral {
			if err := s.opps.Save(ctx, id, *opp); err != nil {
				logger.Warn().Err(err).Msg("opportunity not persisted")
			} else {
				logger.Info().Str("type", string(opp.Type)).Str("reason", opp.Reason).Msg("opportunity detected")
			}
		}
	}

	stored, err := s.opps.Get(ctx, id)
	if err != nil {
		logger.Warn().Err(err).Msg("read opportunity")
	}
	return s.annotator.Annotate(ctx, game, stored)
}

// GameDetails returns the event detail envelope with its first result
// annotated from what is already stored. Nothing is recorded, and an empty
// envelope is returned as is.
func (s *Service) GameDetails(ctx context.Context, id string) (*entity.GameDetail, error) {
	resp, err := s.provider.FetchGame(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("game_id", id).Msg("[Service.GameDetails] error fetch game")
		return nil, err
	}

	detail := &entity.GameDetail{
		Success: resp.Success,
		Pager:   resp.Pager,
		Results: make([]entity.AnnotatedGame, 0, len(resp.Results)),
	}
	for _, raw := range resp.Results {
		detail.Results = append(detail.Results, entity.Unannotated(raw))
	}
	if len(resp.Results) == 0 {
		return detail, nil
	}

	game, err := resp.Game(0)
	if err != nil {
		s.logger.Error().Err(err).Str("game_id", id).Msg("[Service.GameDetails] error decode game")
		return detail, nil
	}

	opp, err := s.opps.Get(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("game_id", id).Msg("read opportunity")
	}
	detail.Results[0] = s.annotator.Annotate(ctx, game, opp)
	return detail, nil
}

// History never fails; a store fault reads as an empty history.
func (s *Service) History(ctx context.Context, id string) []entity.LineSnapshot {
	entries, err := s.history.Read(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("game_id", id).Msg("read line history")
	}
	return entries
}

// Odds runs the dedicated odds lookup for a bet365 event id.
func (s *Service) Odds(ctx context.Context, bet365ID string) (*entity.LineOdds, error) {
	if !isDigits(bet365ID) {
		return nil, ErrOddsUnavailable
	}

	resp, err := s.provider.FetchMarkets(ctx, bet365ID)
	if err != nil {
		s.logger.Error().Err(err).Str("bet365_id", bet365ID).Msg("[Service.Odds] error fetch markets")
		return nil, fmt.Errorf("%w: %w", ErrOddsUnavailable, err)
	}

	spread, total := parse.ScanMarkets(resp)
	return &entity.LineOdds{
		Spread:    spread,
		Total:     total,
		Timestamp: s.now(),
	}, nil
}

// Stats counts stored opportunities by type. Live and upcoming counts come
// from the provider. A non-200 answer leaves them at zero; a provider that
// cannot be reached or parsed is replaced by the stored opportunities.
func (s *Service) Stats(ctx context.Context) entity.Stats {
	all, err := s.opps.All(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("read opportunities for stats")
	}

	var stats entity.Stats
	for _, opp := range all {
		switch opp.Type {
		case entity.OpportunityGreen:
			stats.GreenOpportunities++
		case entity.OpportunityRed:
			stats.RedOpportunities++
		case entity.OpportunityBlue:
			stats.BlueOpportunities++
		}
	}

	flagged := stats.GreenOpportunities + stats.RedOpportunities + stats.BlueOpportunities
	stats.OpportunityPercentage = int(math.RoundToEven(float64(flagged) / float64(max(len(all), 1)) * 100))

	resp, err := s.provider.FetchGames(ctx)
	if errors.Is(err, api.ErrBadStatus) {
		s.logger.Error().Err(err).Msg("[Service.Stats] error count games")
		return stats
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("[Service.Stats] error count games, using stored opportunities")
		for _, opp := range all {
			switch opp.TimeStatus {
			case entity.StatusLive:
				stats.TotalLive++
			case entity.StatusNotStarted:
				stats.TotalUpcoming++
			}
		}
		return stats
	}

	counts := resp.CountByStatus()
	stats.TotalLive = counts[entity.StatusLive]
	stats.TotalUpcoming = counts[entity.StatusNotStarted]
	return stats
}

// ProbeProvider reports whether the provider answers at all.
func (s *Service) ProbeProvider(ctx context.Context) bool {
	if err := s.provider.Probe(ctx); err != nil {
		s.logger.Error().Err(err).Msg("[Service.ProbeProvider] provider unavailable")
		return false
	}
	return true
}

// CheckProvider is the manual provider probe: counts plus a sample game.
func (s *Service) CheckProvider(ctx context.Context) entity.ProviderCheck {
	check := entity.ProviderCheck{Timestamp: s.now()}

	resp, err := s.provider.FetchGames(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("[Service.CheckProvider] error fetch games")
		check.Status = "error"

		var perr *api.ProviderError
		if errors.As(err, &perr) && perr.StatusCode != 0 {
			check.Message = fmt.Sprintf("Error connecting to API: %d", perr.StatusCode)
			check.ResponseText = perr.Body
		} else {
			check.Message = fmt.Sprintf("Error connecting to API: %v", err)
		}
		return check
	}

	if len(resp.Results) == 0 {
		check.Status = "no_games"
		check.Message = "API connection successful but no games found"
		check.RawResponse = resp
		return check
	}

	counts := resp.CountByStatus()
	check.Status = "ok"
	check.TotalGames = len(resp.Results)
	check.LiveGames = counts[entity.StatusLive]
	check.UpcomingGames = counts[entity.StatusNotStarted]
	check.FirstGameSample = resp.Results[0]
	return check
}

// Run polls on a fixed interval until ctx is done. Every processed batch is
// pushed to the feed.
func (s *Service) Run(ctx context.Context, interval time.Duration, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.ProcessGames(ctx); err != nil && !errors.Is(err, ErrNoGames) {
				s.logger.Error().Err(err).Msg("[Service.Run] poll failed")
			}

		case <-ctx.Done():
			return
		}
	}
}

// publish never blocks the pipeline on a slow feed.
func (s *Service) publish(batch *entity.Batch) {
	if s.sendChan == nil {
		return
	}
	select {
	case s.sendChan <- *batch:
	default:
		s.logger.Warn().Msg("feed is full, batch dropped")
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
