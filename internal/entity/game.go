package entity

import (
	"bytes"
	"encoding/json"

	"github.com/iancoleman/orderedmap"
)

const BasketballID = 18

// TimeStatus is the provider's game state code.
type TimeStatus string

const (
	StatusNotStarted TimeStatus = "0"
	StatusLive       TimeStatus = "1"
	StatusEnded      TimeStatus = "3"
)

func (s *TimeStatus) UnmarshalJSON(b []byte) error {
	var f FlexString
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*s = TimeStatus(f)
	return nil
}

// FlexString accepts both JSON strings and JSON numbers. The provider is not
// consistent about quoting ids and status codes.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

type League struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
}

// Timer is the live clock block. q is the current quarter, tm the minutes
// left on the clock; both arrive as strings or numbers.
type Timer struct {
	Quarter   any `json:"q"`
	Remaining any `json:"tm"`
	Seconds   any `json:"ts"`
}

// RawGame is one in-play event as returned by the provider. The upstream
// document is kept so the annotated output carries every upstream field.
// Only id and time_status are decoded eagerly. The other blocks are read on
// demand, so a block with an unexpected shape (the feed sends [] for an
// empty object) only loses that block.
type RawGame struct {
	ID         FlexString      `json:"id"`
	Bet365ID   FlexString      `json:"bet365_id"`
	TimeStatus TimeStatus      `json:"time_status"`
	League     json.RawMessage `json:"league,omitempty"`
	Score      json.RawMessage `json:"ss,omitempty"`
	Timer      json.RawMessage `json:"timer,omitempty"`
	Odds       json.RawMessage `json:"odds,omitempty"`
	Extra      json.RawMessage `json:"extra,omitempty"`

	raw []byte
}

func (g *RawGame) UnmarshalJSON(b []byte) error {
	type alias RawGame
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*g = RawGame(a)
	g.raw = append([]byte(nil), b...)
	return nil
}

// Raw returns the upstream document, or a re-encoding of the typed fields
// when the game was not decoded from JSON.
func (g *RawGame) Raw() ([]byte, error) {
	if len(g.raw) > 0 {
		return g.raw, nil
	}
	type alias RawGame
	return json.Marshal((*alias)(g))
}

// OddsFields returns the inline odds object in document order. A nil map
// means the game has no inline odds.
func (g *RawGame) OddsFields() (*orderedmap.OrderedMap, error) {
	return objectFields(g.Odds)
}

// ExtraFields returns the "extra" object in document order.
func (g *RawGame) ExtraFields() (*orderedmap.OrderedMap, error) {
	return objectFields(g.Extra)
}

// LeagueInfo returns the league block, or nil when the game has none.
func (g *RawGame) LeagueInfo() (*League, error) {
	var league League
	ok, err := decodeBlock(g.League, &league)
	if !ok {
		return nil, err
	}
	return &league, nil
}

// TimerFields returns the live clock block, or nil when the game has none.
func (g *RawGame) TimerFields() (*Timer, error) {
	var timer Timer
	ok, err := decodeBlock(g.Timer, &timer)
	if !ok {
		return nil, err
	}
	return &timer, nil
}

// ScoreText returns the "home-away" score string, empty when absent.
func (g *RawGame) ScoreText() (string, error) {
	var score FlexString
	if _, err := decodeBlock(g.Score, &score); err != nil {
		return "", err
	}
	return string(score), nil
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// decodeBlock reports false with a nil error when the block is absent.
func decodeBlock(raw json.RawMessage, v any) (bool, error) {
	if isAbsent(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

func objectFields(raw json.RawMessage) (*orderedmap.OrderedMap, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	fields := orderedmap.New()
	if err := json.Unmarshal(raw, fields); err != nil {
		return nil, err
	}
	return fields, nil
}
