package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"livebets/line_tracker/internal/api"
	"livebets/line_tracker/internal/entity"
	"livebets/line_tracker/internal/service"

	"github.com/go-chi/chi/v5"
)

const detailsLimit = 200

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type warningResponse struct {
	Warning string                 `json:"warning"`
	RawData *entity.InplayResponse `json:"raw_data"`
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	batch, err := s.pipeline.ProcessGames(r.Context())
	if errors.Is(err, service.ErrNoGames) {
		var raw *entity.InplayResponse
		if batch != nil {
			raw = batch.Upstream
		}
		respondJSON(w, http.StatusOK, warningResponse{Warning: "No games available now", RawData: raw})
		return
	}
	if err != nil {
		s.respondProviderError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, batch)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	detail, err := s.pipeline.GameDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondProviderError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleLinesHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.pipeline.History(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleOdds(w http.ResponseWriter, r *http.Request) {
	odds, err := s.pipeline.Odds(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "Odds data not available"})
		return
	}

	respondJSON(w, http.StatusOK, odds)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.pipeline.Stats(r.Context()))
}

func (s *Server) handleCheckProvider(w http.ResponseWriter, r *http.Request) {
	s.logger.Info().Msg("starting manual check of provider")
	respondJSON(w, http.StatusOK, s.pipeline.CheckProvider(r.Context()))
}

// respondProviderError maps a failed provider call to a 500 with the start
// of the upstream body when there is one.
func (s *Server) respondProviderError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: fmt.Sprintf("Error calling API: %v", err)}

	var perr *api.ProviderError
	if errors.As(err, &perr) {
		switch {
		case errors.Is(err, api.ErrMalformedBody):
			resp.Error = fmt.Sprintf("Error parsing JSON: %v", perr.Err)
		case perr.StatusCode != 0:
			resp.Error = fmt.Sprintf("Error calling API: status %d", perr.StatusCode)
		}
		resp.Details = limit(perr.Body, detailsLimit)
	}

	s.logger.Error().Err(err).Msg(resp.Error)
	respondJSON(w, http.StatusInternalServerError, resp)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func limit(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
