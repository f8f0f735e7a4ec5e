package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"livebets/line_tracker/internal/api"
	"livebets/line_tracker/internal/entity"
	"livebets/line_tracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	batch     *entity.Batch
	batchErr  error
	detail    *entity.GameDetail
	detailErr error
	history   []entity.LineSnapshot
	odds      *entity.LineOdds
	oddsErr   error
	stats     entity.Stats
	available bool
	check     entity.ProviderCheck
	lastID    string
}

func (f *fakePipeline) ProcessGames(context.Context) (*entity.Batch, error) {
	return f.batch, f.batchErr
}

func (f *fakePipeline) GameDetails(_ context.Context, id string) (*entity.GameDetail, error) {
	f.lastID = id
	return f.detail, f.detailErr
}

func (f *fakePipeline) History(_ context.Context, id string) []entity.LineSnapshot {
	f.lastID = id
	return f.history
}

func (f *fakePipeline) Odds(_ context.Context, id string) (*entity.LineOdds, error) {
	f.lastID = id
	return f.odds, f.oddsErr
}

func (f *fakePipeline) Stats(context.Context) entity.Stats {
	return f.stats
}

func (f *fakePipeline) ProbeProvider(context.Context) bool {
	return f.available
}

func (f *fakePipeline) CheckProvider(context.Context) entity.ProviderCheck {
	return f.check
}

func ptr(v float64) *float64 {
	return &v
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestGames(t *testing.T) {
	game := &entity.RawGame{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"9001","time_status":"1"}`), game))
	pipeline := &fakePipeline{batch: &entity.Batch{
		Success: json.RawMessage(`1`),
		Results: []entity.AnnotatedGame{{Game: game, LineAnnotation: entity.LineAnnotation{LiveSpread: ptr(-3.5)}}},
		Meta:    entity.BatchMeta{Processed: 1, Timestamp: time.Now()},
	}}

	rec, body := get(t, New(pipeline, nil, nil, nil), "/api/games")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))

	results := body["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "9001", first["id"])
	assert.Equal(t, -3.5, first["live_spread"])
	assert.Equal(t, float64(1), body["_meta"].(map[string]any)["processed"])
}

func TestGamesNoData(t *testing.T) {
	upstream := &entity.InplayResponse{Success: json.RawMessage(`1`), Results: []json.RawMessage{}}
	pipeline := &fakePipeline{batch: &entity.Batch{Upstream: upstream}, batchErr: service.ErrNoGames}

	rec, body := get(t, New(pipeline, nil, nil, nil), "/api/games")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No games available now", body["warning"])
	assert.NotNil(t, body["raw_data"])
}

func TestGamesProviderFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		details string
	}{
		{
			name:    "status",
			err:     &api.ProviderError{Op: "fetch games", StatusCode: 503, Body: strings.Repeat("y", 300), Err: api.ErrBadStatus},
			message: "Error calling API: status 503",
			details: strings.Repeat("y", 200),
		},
		{
			name:    "malformed",
			err:     &api.ProviderError{Op: "fetch games", StatusCode: 200, Body: "<html>", Err: api.ErrMalformedBody},
			message: "Error parsing JSON: malformed body",
			details: "<html>",
		},
		{
			name:    "network",
			err:     errors.New("connection refused"),
			message: "Error calling API: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, New(&fakePipeline{batchErr: tt.err}, nil, nil, nil), "/api/games")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tt.message, body["error"])
			if tt.details == "" {
				assert.NotContains(t, body, "details")
			} else {
				assert.Equal(t, tt.details, body["details"])
			}
		})
	}
}

func TestGameDetails(t *testing.T) {
	game := &entity.RawGame{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"77","league":{"name":"A & B"}}`), game))
	pipeline := &fakePipeline{detail: &entity.GameDetail{
		Success: json.RawMessage(`1`),
		Results: []entity.AnnotatedGame{{Game: game}},
	}}
	srv := New(pipeline, nil, nil, nil)

	rec, body := get(t, srv, "/api/game/77")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "77", pipeline.lastID)
	assert.Contains(t, rec.Body.String(), `"name":"A & B"`, "written without HTML escaping")
	assert.Equal(t, float64(1), body["success"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "77", first["id"])
	assert.Contains(t, first, "spread_direction")

	pipeline.detail = &entity.GameDetail{Success: json.RawMessage(`1`), Results: []entity.AnnotatedGame{}}
	rec, body = get(t, srv, "/api/game/78")
	assert.Equal(t, http.StatusOK, rec.Code, "an empty envelope is not an error")
	assert.Empty(t, body["results"])

	pipeline.detailErr = &api.ProviderError{Op: "fetch game", StatusCode: 502, Err: api.ErrBadStatus}
	rec, body = get(t, srv, "/api/game/79")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error calling API: status 502", body["error"])
}

func TestLinesHistory(t *testing.T) {
	pipeline := &fakePipeline{history: []entity.LineSnapshot{}}
	srv := New(pipeline, nil, nil, nil)

	rec, _ := get(t, srv, "/api/game/5/lines_history")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, "5", pipeline.lastID)

	pipeline.history = []entity.LineSnapshot{{Spread: ptr(1.5), TimeStatus: entity.StatusLive}}
	rec, _ = get(t, srv, "/api/game/5/lines_history")
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 1.5, entries[0]["spread"])
	assert.Nil(t, entries[0]["total"])
}

func TestOdds(t *testing.T) {
	pipeline := &fakePipeline{odds: &entity.LineOdds{Spread: ptr(-6.5)}}
	srv := New(pipeline, nil, nil, nil)

	rec, body := get(t, srv, "/api/game/145566778/odds")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -6.5, body["spread"])
	assert.Contains(t, body, "total")

	pipeline.oddsErr = service.ErrOddsUnavailable
	rec, body = get(t, srv, "/api/game/abc/odds")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Odds data not available", body["error"])
}

func TestStats(t *testing.T) {
	pipeline := &fakePipeline{stats: entity.Stats{OpportunityPercentage: 50, GreenOpportunities: 1, TotalLive: 3}}

	rec, body := get(t, New(pipeline, nil, nil, nil), "/api/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(50), body["opportunity_percentage"])
	assert.Equal(t, float64(0), body["blue_opportunities"])
	assert.Equal(t, float64(3), body["total_live"])
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		configErr error
		status    string
	}{
		{name: "healthy", available: true, status: "ok"},
		{name: "provider down", available: false, status: "error"},
		{name: "bad config", available: true, configErr: errors.New("invalid API token"), status: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, New(&fakePipeline{available: tt.available}, nil, tt.configErr, nil), "/api/health")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.status, body["status"])
			assert.Equal(t, tt.available, body["api_available"])
			assert.Equal(t, tt.configErr == nil, body["config_valid"])
			assert.Equal(t, "development", body["environment"])
		})
	}
}

func TestCheckProvider(t *testing.T) {
	pipeline := &fakePipeline{check: entity.ProviderCheck{Status: "no_games", Message: "API connection successful but no games found"}}

	rec, body := get(t, New(pipeline, nil, nil, nil), "/api/check-b365")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no_games", body["status"])
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()

	New(&fakePipeline{}, nil, nil, nil).Routes().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
