package parse

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var two = decimal.NewFromInt(2)

// RoundHalf rounds to the nearest half point. Ties go to the even half,
// so 17.25 becomes 17.0 and 17.75 becomes 18.0.
func RoundHalf(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).Mul(two).RoundBank(0).Div(two).Float64()
	return f
}

func roundTenth(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).RoundBank(1).Float64()
	return f
}

// toNumber accepts numbers and numeric strings. Absent values, objects and
// non-finite numbers do not count.
func toNumber(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toQuarter reads the quarter as a decimal integer; "08" is 8.
func toQuarter(value any) *int {
	if value == nil {
		return nil
	}
	if s, ok := value.(string); ok {
		q, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		return &q
	}
	q, err := cast.ToIntE(value)
	if err != nil {
		return nil
	}
	return &q
}

func toClock(value any) *string {
	if value == nil {
		return nil
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil
	}
	return &s
}
