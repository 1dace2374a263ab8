package calculator

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"immo-workers/internal/common/errors"
)

// Values is the raw input record of a calculator as typed by the user:
// free-text strings or numbers keyed by field name.
type Values map[string]interface{}

var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber reads the leading decimal number of raw the way a browser's
// parseFloat does: surrounding text is ignored, "3,5" reads as 3 and an
// empty or non-numeric string is reported as missing.
func ParseNumber(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		return ParseNumber(string(v))
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "Infinity") || strings.HasPrefix(s, "+Infinity") || strings.HasPrefix(s, "-Infinity") {
			return 0, false
		}
		m := numberPrefix.FindString(s)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// fieldReader pulls typed fields out of Values and collects the names of
// missing required ones so a single message can report all of them.
type fieldReader struct {
	values  Values
	missing []string
	invalid error
}

func newReader(v Values) *fieldReader {
	return &fieldReader{values: v}
}

// number parses key. A value that holds something other than text or a
// finite number records INVALID_NUMBER and reports bad; plain
// non-numeric text stays missing.
func (r *fieldReader) number(key string) (f float64, ok, bad bool) {
	raw := r.values[key]
	f, ok = ParseNumber(raw)
	if ok || !unreadable(raw) {
		return f, ok, false
	}
	if r.invalid == nil {
		r.invalid = errors.NewInvalidNumberError(key, fmt.Sprint(raw))
	}
	return 0, false, true
}

func unreadable(raw interface{}) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(v), "+"), "-")
		return strings.HasPrefix(s, "Infinity")
	case json.Number:
		return unreadable(string(v))
	}
	return true
}

// required reads a field that must be present and non-zero. Negative
// values are rejected.
func (r *fieldReader) required(key string) float64 {
	f, ok, bad := r.number(key)
	if bad {
		return 0
	}
	if !ok || f == 0 {
		r.missing = append(r.missing, key)
		return 0
	}
	return r.nonNegative(key, f)
}

// present reads a field that must be filled in but may be zero.
func (r *fieldReader) present(key string) float64 {
	f, ok, bad := r.number(key)
	if bad {
		return 0
	}
	if !ok {
		r.missing = append(r.missing, key)
		return 0
	}
	return r.nonNegative(key, f)
}

func (r *fieldReader) optional(key string, def float64) float64 {
	if f, ok, _ := r.number(key); ok {
		return f
	}
	return def
}

func (r *fieldReader) nonNegative(key string, f float64) float64 {
	if f < 0 && r.invalid == nil {
		r.invalid = errors.NewValidationError(key, "Der Wert darf nicht negativ sein")
	}
	return f
}

func (r *fieldReader) text(key, def string) string {
	if s, ok := r.values[key].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return def
}

func (r *fieldReader) choice(key, def string, allowed ...string) string {
	s := strings.ToLower(r.text(key, def))
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	if r.invalid == nil {
		r.invalid = errors.NewValidationError(key, "Ungültige Auswahl: "+s)
	}
	return def
}

func (r *fieldReader) err() error {
	if len(r.missing) > 0 {
		return errors.NewMissingFieldError(r.missing...)
	}
	return r.invalid
}
