package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hankstank/mlb-data/internal/seed"
)

type fakeSyncer struct {
	mu    sync.Mutex
	opts  []seed.Options
	res   []seed.Result
	err   error
	calls chan struct{}
}

func (f *fakeSyncer) SyncMissingData(_ context.Context, opts seed.Options) ([]seed.Result, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.calls != nil {
		f.calls <- struct{}{}
	}
	return f.res, f.err
}

func TestRunOnceSummarizes(t *testing.T) {
	f := &fakeSyncer{res: []seed.Result{
		{Table: "teams_historical", Year: 2021, Success: true, RecordsAdded: 30},
		{Table: "teams_historical", Year: 2022, Error: "mlb teams: status 503", Attempts: 3},
	}}
	s := New(f, Config{Interval: time.Hour, MaxAttempts: 3}, nil)

	sum := s.RunOnce(context.Background())
	if sum.Successful != 1 || sum.Failed != 1 || sum.RecordsAdded != 30 {
		t.Errorf("summary = %s", sum)
	}
	if f.opts[0].MaxAttempts != 3 || len(f.opts[0].Years) != 0 {
		t.Errorf("options = %+v", f.opts[0])
	}
}

func TestRunOnceSurvivesRejection(t *testing.T) {
	s := New(&fakeSyncer{err: errors.New("bad options")}, Config{}, nil)
	if sum := s.RunOnce(context.Background()); sum.Total != 0 {
		t.Errorf("summary = %s", sum)
	}
}

func TestServeRunsAtStartAndStops(t *testing.T) {
	f := &fakeSyncer{calls: make(chan struct{}, 1)}
	s := New(f, Config{Interval: time.Hour, RunAtStart: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	select {
	case <-f.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("no pass at start")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v", err)
	}
}
