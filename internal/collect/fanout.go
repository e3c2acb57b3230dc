package collect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/metrics"
)

// Enqueuer hands a payload to an at-least-once queue. id deduplicates
// repeated submissions of the same task where the queue supports it.
type Enqueuer interface {
	Enqueue(ctx context.Context, id string, payload []byte) error
}

// Report describes one fan-out call.
type Report struct {
	Year     int      `json:"year"`
	TestMode bool     `json:"testMode"`
	Expected int      `json:"expected"`
	Created  int      `json:"created"`
	TaskIDs  []string `json:"taskIds"`
	Errors   []string `json:"errors,omitempty"`
}

// FanOut enqueues season collection tasks.
type FanOut struct {
	queue   Enqueuer
	seasons config.SeasonBoundary
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewFanOut creates a FanOut over queue.
func NewFanOut(queue Enqueuer, seasons config.SeasonBoundary, m *metrics.Metrics, logger *slog.Logger) *FanOut {
	if logger == nil {
		logger = slog.Default()
	}
	return &FanOut{queue: queue, seasons: seasons, metrics: m, logger: logger}
}

// CreateSeasonCollectionTasks enqueues the season's month tasks and returns
// without waiting for any of them. A failed enqueue is reported and does not
// stop the remaining months. The error is reserved for an invalid year.
func (f *FanOut) CreateSeasonCollectionTasks(ctx context.Context, year int, testMode bool) (Report, error) {
	if err := f.seasons.ValidateCollectable(year); err != nil {
		return Report{}, err
	}

	tasks := Plan(year, testMode)
	rep := Report{Year: year, TestMode: testMode, Expected: len(tasks), TaskIDs: []string{}}
	for _, t := range tasks {
		payload, err := t.Encode()
		if err == nil {
			err = f.queue.Enqueue(ctx, t.ID, payload)
		}
		if err != nil {
			f.metrics.TaskEnqueued(false)
			f.logger.Error("Enqueue failed", "task", t.ID, "error", err)
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", t.ID, err))
			continue
		}
		f.metrics.TaskEnqueued(true)
		rep.Created++
		rep.TaskIDs = append(rep.TaskIDs, t.ID)
	}

	f.logger.Info("Season collection tasks enqueued",
		"year", year, "test_mode", testMode, "created", rep.Created, "expected", rep.Expected)
	return rep, nil
}
