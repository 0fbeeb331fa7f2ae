// Package types provides the numeric value types shared by documents and registers.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Quantity is a fixed-point quantity with 4 decimal places (scale = 1e4).
// Stored as BIGINT, rendered in JSON as a number.
type Quantity int64

const QuantityScale int64 = 10_000

// NewQuantity builds a whole-unit quantity.
func NewQuantity(units int64) Quantity { return Quantity(units * QuantityScale) }

func NewQuantityFromFloat64(v float64) Quantity {
	return Quantity(math.Round(v * float64(QuantityScale)))
}

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

// Clamp bounds q to [lo, hi].
func (q Quantity) Clamp(lo, hi Quantity) Quantity {
	if q < lo {
		return lo
	}
	if q > hi {
		return hi
	}
	return q
}

// MaxZero returns q, or zero when q is negative.
func (q Quantity) MaxZero() Quantity {
	if q < 0 {
		return 0
	}
	return q
}

// String returns a decimal string with 4 fractional digits.
func (q Quantity) String() string {
	neg := q < 0
	v := q
	if neg {
		v = -v
	}
	intPart := int64(v) / QuantityScale
	frac := int64(v) % QuantityScale
	if neg {
		return fmt.Sprintf("-%d.%04d", intPart, frac)
	}
	return fmt.Sprintf("%d.%04d", intPart, frac)
}

// MarshalJSON encodes Quantity as JSON number (not string), preserving 4 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string and parses to fixed-point.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	parsed, err := ParseQuantity(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQuantity parses "12", "12.5" or "-0.0001". Digits past the fourth
// fractional place are truncated.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse quantity: %w", err)
		}
		return NewQuantityFromFloat64(f), nil
	}

	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	intStr, fracStr, _ := strings.Cut(s, ".")
	if intStr == "" {
		intStr = "0"
	}
	intPart, err := strconv.ParseInt(intStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity integer part: %w", err)
	}

	if len(fracStr) > 4 {
		fracStr = fracStr[:4]
	}
	fracStr += strings.Repeat("0", 4-len(fracStr))
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity fractional part: %w", err)
	}

	return Quantity(sign * (intPart*QuantityScale + frac)), nil
}
