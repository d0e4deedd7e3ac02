package util

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders v in shortest round-trip form, using positional
// notation for decimal exponents in [-4, 16) and scientific notation
// otherwise. Integral values keep a trailing ".0" in positional form.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if v == 0 {
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}
	exp := decimalExponent(v)
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// RoundFloat rounds v to the given number of decimal places.
func RoundFloat(v float64, places int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	s := strconv.FormatFloat(v, 'f', places, 64)
	out, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v
	}
	return out
}

func decimalExponent(v float64) int {
	s := strconv.FormatFloat(v, 'e', -1, 64)
	idx := strings.IndexByte(s, 'e')
	if idx < 0 {
		return 0
	}
	exp, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return 0
	}
	return exp
}
