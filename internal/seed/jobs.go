package seed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ticket identifies a submitted background sync. Completion is observed
// through the status tracker, not through the ticket.
type Ticket struct {
	ID          string    `json:"id"`
	Options     Options   `json:"options"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Jobs runs SyncMissingData in the background on a process-lifetime
// context so a submitted job outlives the request that started it.
type Jobs struct {
	engine *Engine
	base   context.Context
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewJobs binds submitted jobs to base; cancelling base stops them.
func NewJobs(base context.Context, engine *Engine, logger *slog.Logger) *Jobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &Jobs{engine: engine, base: base, logger: logger}
}

// Submit validates opts, starts the sync and returns immediately.
func (j *Jobs) Submit(opts Options) (Ticket, error) {
	if err := j.engine.Validate(opts); err != nil {
		return Ticket{}, err
	}
	t := Ticket{ID: uuid.NewString(), Options: opts, SubmittedAt: time.Now().UTC()}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		logger := j.logger.With("job", t.ID)
		logger.Info("Background sync started", "years", opts.Years, "tables", opts.Tables, "force", opts.ForceRefresh)
		results, err := j.engine.SyncMissingData(j.base, opts)
		if err != nil {
			logger.Error("Background sync rejected", "error", err)
			return
		}
		s := Summarize(results)
		for _, r := range s.Failures() {
			logger.Error("Background sync failed", "table", r.Table, "year", r.Year, "error", r.Error)
		}
		logger.Info("Background sync finished", "summary", s.String())
	}()
	return t, nil
}

// Wait blocks until every submitted job has returned.
func (j *Jobs) Wait() {
	j.wg.Wait()
}
