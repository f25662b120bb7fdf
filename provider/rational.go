package provider

import (
	"fmt"
	"strconv"
	"strings"
)

// Rational is an exact fraction used for time bases and frame rates.
// It is never reduced by the provider layer.
type Rational struct {
	Num int64 `json:"num" yaml:"num"`
	Den int64 `json:"den" yaml:"den"`
}

// NewRational returns num/den as given.
func NewRational(num, den int64) Rational {
	return Rational{Num: num, Den: den}
}

// Float64 returns the floating point value, 0 for a zero denominator.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRational parses "num/den" or a plain integer "num" (den 1).
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	numStr, denStr, found := strings.Cut(s, "/")
	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parsing numerator of %q: %w", s, err)
	}
	if !found {
		return Rational{Num: num, Den: 1}, nil
	}
	den, err := strconv.ParseInt(denStr, 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parsing denominator of %q: %w", s, err)
	}
	return Rational{Num: num, Den: den}, nil
}

// TimeBase90kHz is the MPEG system clock time base.
var TimeBase90kHz = Rational{Num: 1, Den: 90000}
