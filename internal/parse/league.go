package parse

import "strings"

const defaultLeagueTotal = 155.0

// Historical average totals. Matched in order by substring of the
// normalized league name.
var leagueAverageTotals = []struct {
	key   string
	total float64
}{
	{"nba", 224.5},
	{"euroleague", 158.5},
	{"eurocup", 162.0},
	{"spain", 156.0},
	{"greece", 150.0},
	{"italy", 154.0},
	{"israel", 160.0},
	{"turkey", 158.0},
	{"lithuania", 152.0},
	{"germany", 158.0},
	{"france", 152.0},
	{"portugal", 150.0},
	{"qatar", 148.0},
}

// LeagueAverageTotal returns the average total of the first league whose key
// appears in name, or the default for unknown leagues.
func LeagueAverageTotal(name string) float64 {
	name = normalizeLeague(name)
	for _, league := range leagueAverageTotals {
		if strings.Contains(name, league.key) {
			return league.total
		}
	}
	return defaultLeagueTotal
}

func normalizeLeague(name string) string {
	// Collapse inner and outer whitespace
	name = strings.Join(strings.Fields(name), " ")
	return strings.ToLower(name)
}
