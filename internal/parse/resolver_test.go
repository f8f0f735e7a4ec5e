package parse

import (
	"context"
	"fmt"
	"testing"

	"livebets/line_tracker/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFixtureGames(t *testing.T) {
	games := getGames(t, "inplay_basketball.json")
	resolver := New(nil, nil)

	tests := []struct {
		id      string
		spread  *float64
		total   *float64
		caption string
	}{
		{id: "9001", spread: ptr(-3.5), total: ptr(145.0), caption: "inline odds beat score and league"},
		{id: "9002", spread: ptr(17.5), total: ptr(126.0), caption: "score estimate beats league average"},
		{id: "9003", spread: nil, total: ptr(158.5), caption: "league average only"},
		{id: "9004", spread: ptr(2.5), total: ptr(161.5), caption: "alternate key shapes"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			game, ok := games[tt.id]
			require.True(t, ok)

			snap := resolver.Resolve(context.Background(), game)
			requireLine(t, tt.spread, snap.Spread, tt.caption+" spread")
			requireLine(t, tt.total, snap.Total, tt.caption+" total")
			assert.Equal(t, game.TimeStatus, snap.TimeStatus)
		})
	}
}

func TestResolveCopiesTimer(t *testing.T) {
	games := getGames(t, "inplay_basketball.json")
	resolver := New(nil, nil)

	snap := resolver.Resolve(context.Background(), games["9001"])
	require.NotNil(t, snap.Quarter)
	assert.Equal(t, 2, *snap.Quarter)
	require.NotNil(t, snap.TimeRemaining)
	assert.Equal(t, "4", *snap.TimeRemaining)

	snap = resolver.Resolve(context.Background(), games["9003"])
	assert.Nil(t, snap.Quarter)
	assert.Nil(t, snap.TimeRemaining)
}

func TestResolveOddsLookupFirst(t *testing.T) {
	games := getGames(t, "inplay_basketball.json")
	markets := &fakeMarkets{resp: getMarkets(t, "event_odds.json")}
	resolver := New(markets, nil)

	snap := resolver.Resolve(context.Background(), games["9004"])
	assert.Equal(t, []string{"145566778"}, markets.calls)
	requireLine(t, ptr(-6.5), snap.Spread, "spread from market 18_1")
	requireLine(t, ptr(160.5), snap.Total, "total from the Over entry of 18_2")
}

func TestResolveOddsLookupSkippedWithoutID(t *testing.T) {
	games := getGames(t, "inplay_basketball.json")
	markets := &fakeMarkets{resp: getMarkets(t, "event_odds.json")}
	resolver := New(markets, nil)

	snap := resolver.Resolve(context.Background(), games["9001"])
	assert.Empty(t, markets.calls)
	requireLine(t, ptr(-3.5), snap.Spread, "spread")
}

func TestResolveFailedLookupFallsThrough(t *testing.T) {
	games := getGames(t, "inplay_basketball.json")
	markets := &fakeMarkets{err: errLookupFailed}
	resolver := New(markets, nil)

	snap := resolver.Resolve(context.Background(), games["9004"])
	assert.Len(t, markets.calls, 1, "no retry within one resolve")
	requireLine(t, ptr(2.5), snap.Spread, "spread")
	requireLine(t, ptr(161.5), snap.Total, "total")
}

func TestResolvePartialLookup(t *testing.T) {
	markets := &fakeMarkets{resp: &entity.MarketsResponse{
		Results: []entity.Market{
			{MarketID: SpreadMarketID, Odds: []entity.MarketOdd{{Handicap: "n/a"}, {Handicap: 4.5}}},
		},
	}}
	resolver := New(markets, nil)
	game := decodeGame(t, `{"id":"1","bet365_id":"77","time_status":"1","odds":{"total":"150.5","handicap":"-1"}}`)

	snap := resolver.Resolve(context.Background(), game)
	requireLine(t, ptr(4.5), snap.Spread, "lookup spread is kept over the inline one")
	requireLine(t, ptr(150.5), snap.Total, "inline total fills the gap")
}

func TestInlineMarketsFirstParseableWins(t *testing.T) {
	resolver := New(nil, nil)
	game := decodeGame(t, `{"id":"1","odds":{"handicap":"","ah":"-2","point_spread":"-9","ou":"x","total_line":161}}`)

	snap := resolver.Resolve(context.Background(), game)
	requireLine(t, ptr(-2.0), snap.Spread, "spread")
	requireLine(t, ptr(161.0), snap.Total, "total")
}

func TestExtraHandicap(t *testing.T) {
	resolver := New(nil, nil)
	game := decodeGame(t, `{"id":"1","extra":{"handicap":"18.5"},"odds":{"ah_home":"-3"},"league":{"name":"NBA"}}`)

	snap := resolver.Resolve(context.Background(), game)
	requireLine(t, ptr(18.5), snap.Spread, "extra handicap precedes alternate keys")
	requireLine(t, ptr(224.5), snap.Total, "league average")
}

func TestAlternateKeysCaseInsensitive(t *testing.T) {
	resolver := New(nil, nil)
	game := decodeGame(t, `{"id":"1","odds":{"Handicap_Away":"3","HANDICAP_HOME":"-4","OverTotal":"150"}}`)

	snap := resolver.Resolve(context.Background(), game)
	requireLine(t, ptr(-4.0), snap.Spread, "spread")
	requireLine(t, ptr(150.0), snap.Total, "total")
}

func TestScoreSpreadProperty(t *testing.T) {
	resolver := New(nil, nil)
	for home := 0; home <= 60; home += 7 {
		for away := 0; away <= 60; away += 5 {
			game := decodeGame(t, fmt.Sprintf(`{"id":"1","ss":"%d-%d"}`, home, away))
			snap := resolver.Resolve(context.Background(), game)

			want := float64(home-away) - 3.5
			if home > away {
				want = float64(home-away) + 3.5
			}
			require.NotNil(t, snap.Spread)
			assert.Equal(t, RoundHalf(want), *snap.Spread, "score %d-%d", home, away)
			assert.Nil(t, snap.Total, "no quarter, no league: total stays unset")
		}
	}
}

func TestScoreTotalNeedsQuarter(t *testing.T) {
	resolver := New(nil, nil)

	game := decodeGame(t, `{"id":"1","ss":"30-30","timer":{"q":"0"}}`)
	snap := resolver.Resolve(context.Background(), game)
	assert.Nil(t, snap.Total, "quarter 0 disables the estimate")
	requireLine(t, ptr(-3.5), snap.Spread, "tied score leans to the away side")

	game = decodeGame(t, `{"id":"1","ss":"30-30","timer":{"q":"1"}}`)
	snap = resolver.Resolve(context.Background(), game)
	requireLine(t, ptr(252.0), snap.Total, "60 * 4 * 1.05")
}

func TestMalformedScoreIsSkipped(t *testing.T) {
	resolver := New(nil, nil)
	game := decodeGame(t, `{"id":"1","ss":"abc","timer":{"q":"2"},"league":{"name":"Unknown Cup"}}`)

	snap := resolver.Resolve(context.Background(), game)
	assert.Nil(t, snap.Spread)
	requireLine(t, ptr(155.0), snap.Total, "default league total")
}

func TestMalformedOddsIsSkipped(t *testing.T) {
	resolver := New(nil, nil)
	game := decodeGame(t, `{"id":"1","odds":["handicap","-3"],"ss":"10-2"}`)

	snap := resolver.Resolve(context.Background(), game)
	requireLine(t, ptr(11.5), snap.Spread, "score estimate")
}

func TestNoLeagueNoTotal(t *testing.T) {
	resolver := New(nil, nil)
	snap := resolver.Resolve(context.Background(), decodeGame(t, `{"id":"1"}`))
	assert.Nil(t, snap.Spread)
	assert.Nil(t, snap.Total)
}

func TestLeagueAverageTotal(t *testing.T) {
	assert.Equal(t, 158.5, LeagueAverageTotal("Euroleague"))
	assert.Equal(t, 158.5, LeagueAverageTotal("  EUROLEAGUE   Playoffs "))
	assert.Equal(t, 162.0, LeagueAverageTotal("Eurocup"))
	assert.Equal(t, 156.0, LeagueAverageTotal("Spain ACB"))
	assert.Equal(t, 224.5, LeagueAverageTotal("NBA Summer League"))
	assert.Equal(t, 155.0, LeagueAverageTotal("Brazil NBB"))
}

func TestEstimateTotal(t *testing.T) {
	assert.Equal(t, 126.0, EstimateTotal(52, 38, 3))
	assert.Equal(t, 157.5, EstimateTotal(40, 35, 2))
}

func TestScanMarkets(t *testing.T) {
	spread, total := ScanMarkets(getMarkets(t, "event_odds.json"))
	requireLine(t, ptr(-6.5), spread, "spread")
	requireLine(t, ptr(160.5), total, "total")

	spread, total = ScanMarkets(nil)
	assert.Nil(t, spread)
	assert.Nil(t, total)
}

func TestOddBlockShapesAreSkipped(t *testing.T) {
	resolver := New(nil, nil)

	game := decodeGame(t, `{"id":"1","ss":"40-35","timer":[],"odds":{"handicap":"-3.5","total":"145"}}`)
	snap := resolver.Resolve(context.Background(), game)
	assert.Nil(t, snap.Quarter, "unreadable timer")
	requireLine(t, ptr(-3.5), snap.Spread, "inline spread")
	requireLine(t, ptr(145.0), snap.Total, "inline total")

	game = decodeGame(t, `{"id":"2","ss":"40-35","timer":{"q":"2"},"league":[]}`)
	snap = resolver.Resolve(context.Background(), game)
	requireLine(t, ptr(8.5), snap.Spread, "score estimate")
	requireLine(t, ptr(157.5), snap.Total, "score estimate, league is never reached")

	game = decodeGame(t, `{"id":"3","ss":"40-35","league":[]}`)
	snap = resolver.Resolve(context.Background(), game)
	requireLine(t, ptr(8.5), snap.Spread, "score estimate")
	assert.Nil(t, snap.Total, "unreadable league")
}
