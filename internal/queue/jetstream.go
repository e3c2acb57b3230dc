// Package queue delivers collection tasks at least once. JetStream is the
// durable queue; Local is the in-process fallback used when no NATS server
// is configured. Both deduplicate on the task id a caller enqueues with.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamConfig configures the task stream and its durable consumer.
type JetStreamConfig struct {
	URL             string
	Stream          string
	MaxDeliver      int
	AckWait         time.Duration
	DuplicateWindow time.Duration
	MaxAge          time.Duration
}

func (c JetStreamConfig) withDefaults() JetStreamConfig {
	if c.Stream == "" {
		c.Stream = "COLLECT_TASKS"
	}
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = 5
	}
	if c.AckWait <= 0 {
		c.AckWait = 5 * time.Minute
	}
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = 10 * time.Minute
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7 * 24 * time.Hour
	}
	return c
}

// Subject is the subject tasks are published on.
func (c JetStreamConfig) Subject() string {
	return strings.ToLower(c.Stream) + ".process-month"
}

// Durable is the consumer name shared by every dispatcher instance.
func (c JetStreamConfig) Durable() string {
	return strings.ToLower(c.Stream) + "-dispatcher"
}

// JetStream publishes tasks to a work-queue stream.
type JetStream struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    JetStreamConfig
	logger *slog.Logger
}

// Connect dials NATS and makes sure the task stream exists.
func Connect(ctx context.Context, cfg JetStreamConfig, logger *slog.Logger) (*JetStream, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	nc, err := nats.Connect(cfg.URL,
		nats.Name("mlb-data"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	q := &JetStream{nc: nc, js: js, cfg: cfg, logger: logger}
	if err := q.EnsureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return q, nil
}

// EnsureStream creates the stream or updates it to the current config.
func (q *JetStream) EnsureStream(ctx context.Context) error {
	streamCfg := jetstream.StreamConfig{
		Name:       q.cfg.Stream,
		Subjects:   []string{q.cfg.Subject()},
		Retention:  jetstream.WorkQueuePolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     q.cfg.MaxAge,
		Duplicates: q.cfg.DuplicateWindow,
		Discard:    jetstream.DiscardOld,
	}

	if _, err := q.js.Stream(ctx, q.cfg.Stream); err == nil {
		if _, err := q.js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		return nil
	}
	if _, err := q.js.CreateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	q.logger.Info("Task stream created", "stream", q.cfg.Stream, "subject", q.cfg.Subject())
	return nil
}

// Enqueue publishes payload. Publishing the same id twice inside the
// duplicate window stores one message.
func (q *JetStream) Enqueue(ctx context.Context, id string, payload []byte) error {
	ack, err := q.js.Publish(ctx, q.cfg.Subject(), payload, jetstream.WithMsgID(id))
	if err != nil {
		return fmt.Errorf("publish %s: %w", id, err)
	}
	if ack.Duplicate {
		q.logger.Debug("Task already queued", "task", id)
	}
	return nil
}

// Consumer returns the durable pull consumer for the task subject.
func (q *JetStream) Consumer(ctx context.Context) (jetstream.Consumer, error) {
	c, err := q.js.CreateOrUpdateConsumer(ctx, q.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       q.cfg.Durable(),
		FilterSubject: q.cfg.Subject(),
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       q.cfg.AckWait,
		MaxDeliver:    q.cfg.MaxDeliver,
		MaxAckPending: 8,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	return c, nil
}

// Config returns the effective configuration.
func (q *JetStream) Config() JetStreamConfig { return q.cfg }

// Close drains the connection.
func (q *JetStream) Close() {
	if err := q.nc.Drain(); err != nil {
		q.nc.Close()
	}
}
