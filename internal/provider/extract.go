package provider

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ExtractValue normalizes a stat value from the StatsAPI response formats.
//
// Counting stats arrive as numbers, rate stats as strings (".267", "3.45"),
// and placeholders like "-.--" for undefined rates. Returns the scalar
// float64 value, and ok=false if not extractable.
func ExtractValue(val any) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}
