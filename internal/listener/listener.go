// Package listener propagates historical syncs between API instances over
// Postgres LISTEN/NOTIFY. The instance that ran a sync publishes on the
// `historical_synced` channel; every other instance drops its cached
// answers for that table and year. It holds a dedicated pgx connection
// (not from the pool) for the LISTEN session.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hankstank/mlb-data/internal/db"
)

const (
	Channel          = "historical_synced"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// SyncedEvent is the JSON payload of a historical_synced notification.
type SyncedEvent struct {
	Table  string `json:"table"`
	Year   int    `json:"year"`
	Origin string `json:"origin"`
}

// InvalidateFunc drops cached data for one table and year.
type InvalidateFunc func(ctx context.Context, table string, year int)

// Instance is this process's origin id on the channel.
var Instance = uuid.NewString()

// Notifier publishes sync events through the pool's prepared statement.
type Notifier struct {
	pool   *db.Pool
	logger *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(pool *db.Pool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pool: pool, logger: logger}
}

// Synced publishes a SyncedEvent. Its signature matches seed.SyncedFunc.
func (n *Notifier) Synced(ctx context.Context, table string, year int) {
	payload, err := json.Marshal(SyncedEvent{Table: table, Year: year, Origin: Instance})
	if err != nil {
		return
	}
	if _, err := n.pool.Exec(ctx, db.StmtNotifySynced, string(payload)); err != nil {
		n.logger.Warn("Sync notification failed", "table", table, "year", year, "error", err)
	}
}

// Listener consumes historical_synced notifications.
type Listener struct {
	dbURL      string
	invalidate InvalidateFunc
	logger     *slog.Logger
}

// New creates a Listener calling invalidate for every event published by
// another instance.
func New(dbURL string, invalidate InvalidateFunc, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{dbURL: dbURL, invalidate: invalidate, logger: logger}
}

func (l *Listener) String() string { return "sync-listener" }

// Serve listens until ctx is cancelled, reconnecting with backoff when the
// connection drops.
func (l *Listener) Serve(ctx context.Context) error {
	backoff := reconnectBackoff

	for {
		err := l.listenLoop(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Sync listener stopped (context cancelled)")
			return ctx.Err()
		}

		l.logger.Error("Sync listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func (l *Listener) listenLoop(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	l.logger.Info("Sync listener connected", "channel", Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.Handle(ctx, notification.Payload)
	}
}

// Handle applies one notification payload. It reports whether the cache
// was invalidated.
func (l *Listener) Handle(ctx context.Context, payload string) bool {
	var event SyncedEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil || event.Table == "" {
		l.logger.Warn("Failed to parse sync event", "payload", payload, "error", err)
		return false
	}
	if event.Origin == Instance {
		return false
	}
	l.logger.Info("Sync event received", "table", event.Table, "year", event.Year, "origin", event.Origin)
	l.invalidate(ctx, event.Table, event.Year)
	return true
}
