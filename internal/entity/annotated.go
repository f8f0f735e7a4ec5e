package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/iancoleman/orderedmap"
)

type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

type Flag string

const (
	FlagGreen   Flag = "green"
	FlagNeutral Flag = "neutral"
)

// LineAnnotation holds the history derived fields attached to a game.
type LineAnnotation struct {
	OpeningSpread *float64 `json:"opening_spread"`
	OpeningTotal  *float64 `json:"opening_total"`
	StartSpread   *float64 `json:"start_spread"`
	StartTotal    *float64 `json:"start_total"`
	LiveSpread    *float64 `json:"live_spread"`
	LiveTotal     *float64 `json:"live_total"`

	LiveSpreadDiff float64 `json:"live_spread_diff"`
	LiveTotalDiff  float64 `json:"live_total_diff"`

	SpreadDirection Direction `json:"spread_direction"`
	TotalDirection  Direction `json:"total_direction"`

	SpreadFlag     Flag `json:"spread_flag"`
	OUFlag         Flag `json:"ou_flag"`
	OpeningVsStart Flag `json:"opening_vs_start"`

	OpportunityType   OpportunityType `json:"opportunity_type"`
	OpportunityReason string          `json:"opportunity_reason"`
}

// AnnotatedGame is a raw game plus its line annotation. It is built fresh
// on every read and never stored.
type AnnotatedGame struct {
	Game *RawGame
	LineAnnotation

	// bare is an upstream result written back without annotation.
	bare json.RawMessage
}

// Unannotated wraps an upstream result that is passed through unchanged.
func Unannotated(raw json.RawMessage) AnnotatedGame {
	return AnnotatedGame{bare: raw}
}

// Annotated reports whether the line annotation is part of the output.
func (a AnnotatedGame) Annotated() bool {
	return a.bare == nil
}

// MarshalJSON writes the upstream game object with the annotation fields
// appended, keeping the upstream key order. Upstream values are copied as
// raw JSON so large integers and markup survive unchanged.
func (a AnnotatedGame) MarshalJSON() ([]byte, error) {
	if a.bare != nil {
		return a.bare, nil
	}

	out := orderedmap.New()
	out.SetEscapeHTML(false)
	if a.Game != nil {
		raw, err := a.Game.Raw()
		if err != nil {
			return nil, fmt.Errorf("encode game: %w", err)
		}
		if err := appendRawFields(out, raw); err != nil {
			return nil, fmt.Errorf("decode game: %w", err)
		}
	}

	annotation, err := json.Marshal(a.LineAnnotation)
	if err != nil {
		return nil, err
	}
	if err := appendRawFields(out, annotation); err != nil {
		return nil, err
	}
	return out.MarshalJSON()
}

// appendRawFields sets every top-level field of doc on out in document
// order. An existing key keeps its position and takes the new value.
func appendRawFields(out *orderedmap.OrderedMap, doc []byte) error {
	order := orderedmap.New()
	if err := json.Unmarshal(doc, order); err != nil {
		return err
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(doc, &values); err != nil {
		return err
	}
	for _, key := range order.Keys() {
		out.Set(key, values[key])
	}
	return nil
}

// Marshal encodes v without HTML escaping, the way the feed and the API
// write it.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
