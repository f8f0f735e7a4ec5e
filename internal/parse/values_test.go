package parse

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalf(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{145, 145},
		{-3.5, -3.5},
		{17.2, 17.0},
		{17.3, 17.5},
		{17.7, 17.5},
		{17.8, 18.0},
		{125.99999999999999, 126.0},
		{-6.3, -6.5},
		{17.25, 17.0},
		{17.75, 18.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundHalf(tt.in), "RoundHalf(%v)", tt.in)
	}
}

func TestRoundHalfIdempotent(t *testing.T) {
	for x := -250.0; x <= 250.0; x += 0.13 {
		once := RoundHalf(x)
		assert.Equal(t, once, RoundHalf(once), "x=%v", x)
		assert.Zero(t, math.Mod(once*2, 1), "x=%v is not on a half point", x)
	}
}

func TestToNumber(t *testing.T) {
	v, ok := toNumber(" -3.5 ")
	assert.True(t, ok)
	assert.Equal(t, -3.5, v)

	v, ok = toNumber(145.0)
	assert.True(t, ok)
	assert.Equal(t, 145.0, v)

	_, ok = toNumber(nil)
	assert.False(t, ok)
	_, ok = toNumber("")
	assert.False(t, ok)
	_, ok = toNumber("inf")
	assert.False(t, ok)
	_, ok = toNumber(map[string]any{"line": 1})
	assert.False(t, ok)
}

func TestQuarterIsDecimal(t *testing.T) {
	tests := []struct {
		value any
		want  *int
	}{
		{value: "08", want: intPtr(8)},
		{value: "010", want: intPtr(10)},
		{value: " 3 ", want: intPtr(3)},
		{value: float64(2), want: intPtr(2)},
		{value: "x", want: nil},
		{value: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.value), func(t *testing.T) {
			assert.Equal(t, tt.want, toQuarter(tt.value))
		})
	}
}

func intPtr(v int) *int {
	return &v
}
