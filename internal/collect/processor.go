package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/metrics"
	"github.com/hankstank/mlb-data/internal/provider"
	"github.com/hankstank/mlb-data/internal/store"
)

// Outcome labels.
const (
	OutcomeCollected = "collected"
	OutcomeEmpty     = "empty"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// Outcome is the result of processing one delivered task.
type Outcome struct {
	TaskID   string        `json:"taskId,omitempty"`
	Year     int           `json:"year"`
	Month    string        `json:"month,omitempty"`
	Status   string        `json:"status"`
	Fetched  int           `json:"fetched"`
	Added    int           `json:"added"`
	Duration time.Duration `json:"-"`
}

// StoredFunc is called after a task added rows to table for year.
type StoredFunc func(ctx context.Context, table string, year int)

// Processor fetches and stores one task's slice of pitch data.
type Processor struct {
	events  provider.EventProvider
	store   store.Historical
	seasons config.SeasonBoundary
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	onStored []StoredFunc
}

// NewProcessor creates a Processor.
func NewProcessor(events provider.EventProvider, h store.Historical, seasons config.SeasonBoundary,
	m *metrics.Metrics, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{events: events, store: h, seasons: seasons, metrics: m, logger: logger}
}

// OnStored registers fn to run after every task that added pitches.
func (p *Processor) OnStored(fn StoredFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStored = append(p.onStored, fn)
}

func (p *Processor) stored(ctx context.Context, year int) {
	p.mu.Lock()
	hooks := p.onStored
	p.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx, config.PitchesTable, year)
	}
}

// Handle decodes and processes a raw payload. Malformed payloads return an
// error wrapping ErrInvalidPayload; any other error means "retry".
func (p *Processor) Handle(ctx context.Context, payload []byte) (Outcome, error) {
	t, err := Decode(payload)
	if err != nil {
		p.metrics.TaskProcessed(OutcomeInvalid, 0)
		p.logger.Warn("Rejected task payload", "error", err)
		return Outcome{Status: OutcomeInvalid}, err
	}
	return p.Process(ctx, t)
}

// Process fetches the task's date range and upserts any pitches. Repeated
// delivery of the same task leaves the same rows in the store.
func (p *Processor) Process(ctx context.Context, t Task) (Outcome, error) {
	start := time.Now()
	out := Outcome{TaskID: t.ID, Year: t.Year, Month: t.Month}

	if err := t.Validate(); err != nil {
		out.Status = OutcomeInvalid
		p.metrics.TaskProcessed(OutcomeInvalid, 0)
		return out, err
	}
	if err := p.seasons.ValidateCollectable(t.Year); err != nil {
		out.Status = OutcomeInvalid
		p.metrics.TaskProcessed(OutcomeInvalid, 0)
		return out, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	fail := func(err error) (Outcome, error) {
		out.Status = OutcomeFailed
		out.Duration = time.Since(start)
		p.metrics.TaskProcessed(OutcomeFailed, 0)
		p.logger.Error("Task processing failed", "task", t.ID, "year", t.Year,
			"start", t.StartDate, "end", t.EndDate, "error", err)
		return out, err
	}

	pitches, err := p.events.Pitches(ctx, t.StartDate, t.EndDate)
	if err != nil {
		return fail(fmt.Errorf("fetch pitches %s..%s: %w", t.StartDate, t.EndDate, err))
	}
	out.Fetched = len(pitches)

	if len(pitches) == 0 {
		out.Status = OutcomeEmpty
		out.Duration = time.Since(start)
		p.metrics.TaskProcessed(OutcomeEmpty, 0)
		p.logger.Info("Task found no pitches", "task", t.ID, "start", t.StartDate, "end", t.EndDate)
		return out, nil
	}

	added, err := p.store.Upsert(ctx, config.PitchesTable, store.PitchRows(t.Year, pitches))
	if err != nil {
		return fail(fmt.Errorf("store pitches: %w", err))
	}

	out.Status = OutcomeCollected
	out.Added = added
	out.Duration = time.Since(start)
	p.metrics.TaskProcessed(OutcomeCollected, added)
	p.logger.Info("Task collected", "task", t.ID, "year", t.Year, "month", t.Month,
		"fetched", out.Fetched, "added", added, "elapsed", out.Duration.Round(time.Millisecond))
	if added > 0 {
		p.stored(ctx, t.Year)
	}
	return out, nil
}

// Retryable reports whether a processing error should be redelivered.
func Retryable(err error) bool {
	return err != nil && !errors.Is(err, ErrInvalidPayload)
}
