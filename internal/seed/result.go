// Package seed is the incremental sync engine: it copies closed seasons from
// the live provider into the historical store, one (table, year) at a time,
// through idempotent upserts.
package seed

import "fmt"

// Result is the outcome of one (table, year) sync.
type Result struct {
	Table        string `json:"table"`
	Year         int    `json:"year"`
	Success      bool   `json:"success"`
	Skipped      bool   `json:"skipped,omitempty"`
	RecordsAdded int    `json:"recordsAdded"`
	Attempts     int    `json:"attempts,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Summary aggregates a batch of Results.
type Summary struct {
	Total        int      `json:"total"`
	Successful   int      `json:"successful"`
	Failed       int      `json:"failed"`
	Skipped      int      `json:"skipped"`
	RecordsAdded int      `json:"recordsAdded"`
	Results      []Result `json:"results"`
}

// Summarize counts successes, failures and inserted rows.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), Results: results}
	if s.Results == nil {
		s.Results = []Result{}
	}
	for _, r := range results {
		if r.Success {
			s.Successful++
		} else {
			s.Failed++
		}
		if r.Skipped {
			s.Skipped++
		}
		s.RecordsAdded += r.RecordsAdded
	}
	return s
}

// Failures returns the failed subset, for replaying only what broke.
func (s Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// String returns a one-line summary for logs.
func (s Summary) String() string {
	return fmt.Sprintf("total=%d successful=%d failed=%d skipped=%d records_added=%d",
		s.Total, s.Successful, s.Failed, s.Skipped, s.RecordsAdded)
}
