package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one row returned by a list or detail endpoint.
type Record map[string]any

// String formats a field for display. Missing and null fields are "".
// JSON numbers without a fractional part print as integers, lists are
// joined with ", ".
func (r Record) String(key string) string {
	return FormatValue(r[key])
}

// ID returns the record's "id" field as a string.
func (r Record) ID() string {
	return r.String("id")
}

// FormatValue renders a decoded JSON value as display text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
