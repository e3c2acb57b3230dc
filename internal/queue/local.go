package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"
)

// Handler processes one payload.
type Handler func(ctx context.Context, payload []byte) error

// LocalConfig bounds the in-process queue.
type LocalConfig struct {
	MaxAttempts  int
	RetryInitial time.Duration
	Concurrency  int64
	// Retryable decides whether a handler error is redelivered. nil
	// retries every error.
	Retryable func(error) bool
}

// Local runs tasks in goroutines on a process-lifetime context, retrying
// failures with exponential backoff. A task id already in flight is not
// started twice. Work is lost on process exit.
type Local struct {
	handler Handler
	cfg     LocalConfig
	base    context.Context
	sem     *semaphore.Weighted
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// NewLocal binds queued work to base; cancelling base stops retries.
func NewLocal(base context.Context, handler Handler, cfg LocalConfig, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &Local{
		handler:  handler,
		cfg:      cfg,
		base:     base,
		sem:      semaphore.NewWeighted(cfg.Concurrency),
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Enqueue schedules payload and returns immediately.
func (l *Local) Enqueue(_ context.Context, id string, payload []byte) error {
	l.mu.Lock()
	if _, ok := l.inflight[id]; ok {
		l.mu.Unlock()
		l.logger.Debug("Task already queued", "task", id)
		return nil
	}
	l.inflight[id] = struct{}{}
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			delete(l.inflight, id)
			l.mu.Unlock()
		}()
		if err := l.sem.Acquire(l.base, 1); err != nil {
			return
		}
		defer l.sem.Release(1)
		l.run(id, payload)
	}()
	return nil
}

func (l *Local) run(id string, payload []byte) {
	attempts := 0
	op := func() error {
		attempts++
		err := l.handler(l.base, payload)
		if err != nil && l.cfg.Retryable != nil && !l.cfg.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = l.cfg.RetryInitial
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(l.cfg.MaxAttempts-1)), l.base)

	err := backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		l.logger.Warn("Task failed, retrying", "task", id, "attempt", attempts, "next", next, "error", err)
	})
	if err != nil {
		l.logger.Error("Task abandoned", "task", id, "attempts", attempts, "error", err)
	}
}

// Wait blocks until every queued task has finished or given up.
func (l *Local) Wait() {
	l.wg.Wait()
}
