package store

import (
	"fmt"
	"sort"

	"github.com/hankstank/mlb-data/internal/provider"
)

// Filter selects rows of one table for one season.
type Filter struct {
	Table    string
	Year     int
	Equals   map[string]any // column → required value
	AnyOf    *AnyOf         // any listed column equals Value
	DateFrom string         // inclusive, YYYY-MM-DD, on Spec.DateColumn
	DateTo   string         // inclusive
	OrderBy  string         // column, or a key inside the "stats" document
	Desc     bool
	Limit    int // 0 = unlimited
}

// AnyOf matches rows where at least one of Columns equals Value.
type AnyOf struct {
	Columns []string
	Value   any
}

// Pushdown reports whether a backend may apply Limit in its own query.
// Ordering by a stat key is done in Go, so the limit must wait for it.
func (f Filter) Pushdown() bool {
	return f.OrderBy == ""
}

// Match reports whether doc satisfies the equality and date filters.
func (f Filter) Match(doc Doc, dateColumn string) bool {
	for col, want := range f.Equals {
		if !equalValues(doc[col], want) {
			return false
		}
	}
	if f.AnyOf != nil {
		hit := false
		for _, col := range f.AnyOf.Columns {
			if equalValues(doc[col], f.AnyOf.Value) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if dateColumn != "" && (f.DateFrom != "" || f.DateTo != "") {
		d := dateString(doc[dateColumn])
		if d == "" {
			return false
		}
		if f.DateFrom != "" && d < f.DateFrom {
			return false
		}
		if f.DateTo != "" && d > f.DateTo {
			return false
		}
	}
	return true
}

// Apply filters, orders and limits docs. Docs are filtered by Year only when
// f.Year is set. Both the live path and every backend share it so the two
// routes return identically shaped results.
func Apply(docs []Doc, f Filter, dateColumn string) []Doc {
	out := make([]Doc, 0, len(docs))
	for _, d := range docs {
		if f.Year != 0 && !equalValues(d["year"], f.Year) {
			continue
		}
		if f.Match(d, dateColumn) {
			out = append(out, d)
		}
	}

	if f.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, aok := sortValue(out[i], f.OrderBy)
			b, bok := sortValue(out[j], f.OrderBy)
			// rows without the value sort last in both directions
			if aok != bok {
				return aok
			}
			if f.Desc {
				return a > b
			}
			return a < b
		})
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func sortValue(d Doc, key string) (float64, bool) {
	if v, ok := d[key]; ok {
		return provider.ExtractValue(v)
	}
	if stats, ok := d["stats"].(map[string]any); ok {
		return provider.ExtractValue(stats[key])
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := provider.ExtractValue(a)
	bf, bok := provider.ExtractValue(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func dateString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}
