package parse

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path"
	"testing"

	"livebets/line_tracker/internal/entity"

	"github.com/stretchr/testify/require"
)

const (
	jsonPath = "test_json"
)

func getFile(fileName string) ([]byte, error) {
	fullFileName := path.Join(jsonPath, fileName)
	return os.ReadFile(fullFileName)
}

func getGames(t *testing.T, fileName string) map[string]*entity.RawGame {
	body, err := getFile(fileName)
	require.NoError(t, err, "read %s", fileName)

	var resp entity.InplayResponse
	require.NoError(t, json.Unmarshal(body, &resp), "unmarshal %s", fileName)

	byID := make(map[string]*entity.RawGame, len(resp.Results))
	for i := range resp.Results {
		game, err := resp.Game(i)
		require.NoError(t, err)
		byID[string(game.ID)] = game
	}
	return byID
}

func getMarkets(t *testing.T, fileName string) *entity.MarketsResponse {
	body, err := getFile(fileName)
	require.NoError(t, err, "read %s", fileName)

	var resp entity.MarketsResponse
	require.NoError(t, json.Unmarshal(body, &resp), "unmarshal %s", fileName)
	return &resp
}

func decodeGame(t *testing.T, doc string) *entity.RawGame {
	game := &entity.RawGame{}
	require.NoError(t, json.Unmarshal([]byte(doc), game))
	return game
}

// fakeMarkets serves canned market data and records the lookups it saw.
type fakeMarkets struct {
	resp  *entity.MarketsResponse
	err   error
	calls []string
}

func (f *fakeMarkets) FetchMarkets(_ context.Context, bet365ID string) (*entity.MarketsResponse, error) {
	f.calls = append(f.calls, bet365ID)
	return f.resp, f.err
}

var errLookupFailed = errors.New("lookup failed")

func requireLine(t *testing.T, want *float64, got *float64, caption string) {
	t.Helper()
	if want == nil {
		require.Nil(t, got, caption)
		return
	}
	require.NotNil(t, got, caption)
	require.Equal(t, *want, *got, caption)
}

func ptr(v float64) *float64 {
	return &v
}
