package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row is one parsed record keyed by output field name. Values are string,
// float64, int64 or nil.
type Row map[string]any

// String returns the value as a string; nil becomes "".
func (r Row) String(k string) string {
	switch v := r[k].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value as an integer; nil and unparsable strings become 0.
func (r Row) Int(k string) int64 {
	switch v := r[k].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(math.Round(v))
	case string:
		f, ok := number(v)
		if !ok {
			return 0
		}
		return int64(math.Round(f))
	}
	return 0
}

// NullableInt returns nil when the value is absent.
func (r Row) NullableInt(k string) *int64 {
	if r[k] == nil {
		return nil
	}
	n := r.Int(k)
	return &n
}

// number parses s after removing thousands separators.
func number(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int transforms a cell to int64; empty, "-" and unparsable cells become 0.
func Int(s string) (any, error) {
	f, ok := number(s)
	if !ok {
		return int64(0), nil
	}
	return int64(math.Round(f)), nil
}

// Upper transforms a cell to upper case.
func Upper(s string) (any, error) { return strings.ToUpper(s), nil }
