// Package collect fans a season of pitch-level collection out into one task
// per month and processes delivered tasks. Delivery is at-least-once, so
// processing is an upsert by pitch key and a redelivered task converges on
// the same rows.
package collect

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const dateLayout = "2006-01-02"

// SeasonMonths are the months a season's collection covers.
var SeasonMonths = []time.Month{
	time.March, time.April, time.May, time.June,
	time.July, time.August, time.September, time.October,
}

// TestMonth is the single month collected in test mode.
const TestMonth = time.June

// ErrInvalidPayload marks a task that can never succeed; queues must not
// redeliver it.
var ErrInvalidPayload = errors.New("invalid task payload")

// Task is one month of one season.
type Task struct {
	ID        string `json:"id,omitempty"`
	Year      int    `json:"year" validate:"required,gte=1900,lte=2200"`
	Month     string `json:"month,omitempty"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	TestMode  bool   `json:"testMode,omitempty"`
}

var validate = validator.New()

// TaskID is the queue deduplication id for a month.
func TaskID(year int, month time.Month) string {
	return fmt.Sprintf("collect-%d-%02d", year, int(month))
}

// MonthTask covers every day of month in year.
func MonthTask(year int, month time.Month) Task {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return Task{
		ID:        TaskID(year, month),
		Year:      year,
		Month:     month.String(),
		StartDate: first.Format(dateLayout),
		EndDate:   last.Format(dateLayout),
	}
}

// Plan returns the tasks for a season: one per season month, or just the
// test month in test mode.
func Plan(year int, testMode bool) []Task {
	if testMode {
		t := MonthTask(year, TestMonth)
		t.TestMode = true
		return []Task{t}
	}
	tasks := make([]Task, 0, len(SeasonMonths))
	for _, m := range SeasonMonths {
		tasks = append(tasks, MonthTask(year, m))
	}
	return tasks
}

// Validate checks required fields, date formats and that the range is
// ordered and inside Year.
func (t Task) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	start, _ := time.Parse(dateLayout, t.StartDate)
	end, _ := time.Parse(dateLayout, t.EndDate)
	if end.Before(start) {
		return fmt.Errorf("%w: endDate %s before startDate %s", ErrInvalidPayload, t.EndDate, t.StartDate)
	}
	if start.Year() != t.Year || end.Year() != t.Year {
		return fmt.Errorf("%w: range %s..%s outside year %d", ErrInvalidPayload, t.StartDate, t.EndDate, t.Year)
	}
	return nil
}

// Encode renders the queue payload.
func (t Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// Decode parses and validates a delivered payload. Every failure wraps
// ErrInvalidPayload.
func Decode(payload []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(payload, &t); err != nil {
		return Task{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}
