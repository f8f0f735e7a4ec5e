package server

import (
	"context"
	"net/http"
	"time"

	"livebets/line_tracker/cmd/config"
	"livebets/line_tracker/internal/entity"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

const requestTimeout = 30 * time.Second

// Pipeline is what the HTTP layer needs from the line tracking service.
type Pipeline interface {
	ProcessGames(ctx context.Context) (*entity.Batch, error)
	GameDetails(ctx context.Context, id string) (*entity.GameDetail, error)
	History(ctx context.Context, id string) []entity.LineSnapshot
	Odds(ctx context.Context, bet365ID string) (*entity.LineOdds, error)
	Stats(ctx context.Context) entity.Stats
	ProbeProvider(ctx context.Context) bool
	CheckProvider(ctx context.Context) entity.ProviderCheck
}

type Feed interface {
	HandleClientConn(w http.ResponseWriter, r *http.Request)
}

type Server struct {
	pipeline  Pipeline
	feed      Feed
	configErr error
	logger    *zerolog.Logger
	now       func() time.Time
}

// New builds the HTTP layer. configErr is the start-up validation result,
// reported by the health check.
func New(pipeline Pipeline, feed Feed, configErr error, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{
		pipeline:  pipeline,
		feed:      feed,
		configErr: configErr,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.With(noCache).Get("/games", s.handleGames)
		r.Get("/game/{id}", s.handleGame)
		r.Get("/game/{id}/lines_history", s.handleLinesHistory)
		r.Get("/game/{id}/odds", s.handleOdds)
		r.Get("/stats", s.handleStats)
		r.Get("/health", s.handleHealth)
		r.Get("/check-b365", s.handleCheckProvider)
	})

	if s.feed != nil {
		r.Get("/ws", s.feed.HandleClientConn)
	}

	return r
}

type healthResponse struct {
	Status       string    `json:"status"`
	ConfigValid  bool      `json:"config_valid"`
	APIAvailable bool      `json:"api_available"`
	Environment  string    `json:"environment"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiAvailable := s.pipeline.ProbeProvider(r.Context())
	configValid := s.configErr == nil

	status := "error"
	if configValid && apiAvailable {
		status = "ok"
	}

	respondJSON(w, http.StatusOK, healthResponse{
		Status:       status,
		ConfigValid:  configValid,
		APIAvailable: apiAvailable,
		Environment:  config.Environment(),
		Timestamp:    s.now(),
	})
}
