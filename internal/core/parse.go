package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// ParseAmount converts a client supplied amount into a finite float64.
//
// It accepts JSON numbers (float64 or json.Number, depending on how the body
// was decoded) and numeric strings. Booleans, null, empty strings, NaN and
// infinities are rejected with ErrInvalidAmount. The sign is preserved;
// callers store the magnitude.
func ParseAmount(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, ErrInvalidAmount
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, ErrInvalidAmount
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		f = parsed
	default:
		return 0, ErrInvalidAmount
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

// ParseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date and
// returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDate
}

// CheckNonNegative validates a stored total: finite and >= 0.
func CheckNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return &ValidationError{Field: field, Err: ErrNegativeValue}
	}
	return nil
}
