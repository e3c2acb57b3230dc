package queue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ProcessPath is the task processing endpoint every delivery is posted to.
const ProcessPath = "/tasks/process-month"

// Delivery is one delivered message. jetstream.Msg satisfies it.
type Delivery interface {
	Data() []byte
	Metadata() (*jetstream.MsgMetadata, error)
	Ack() error
	Term() error
	NakWithDelay(delay time.Duration) error
}

// Settlement is how a delivery was settled.
type Settlement string

const (
	Acked  Settlement = "ack"
	Termed Settlement = "term"
	Naked  Settlement = "nak"
)

// Dispatcher consumes the task stream and posts each payload to the
// processing endpoint. 2xx acks, 4xx terminates (the payload will never
// succeed) and anything else is redelivered with a growing delay.
type Dispatcher struct {
	queue    *JetStream
	endpoint string
	client   *http.Client
	logger   *slog.Logger

	RetryBase time.Duration
	RetryMax  time.Duration
}

// NewDispatcher posts deliveries to baseURL + ProcessPath.
func NewDispatcher(q *JetStream, baseURL string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Dispatcher{
		queue:     q,
		endpoint:  strings.TrimRight(baseURL, "/") + ProcessPath,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		RetryBase: 10 * time.Second,
		RetryMax:  10 * time.Minute,
	}
}

// Serve consumes until ctx is cancelled. It runs as a supervised service.
func (d *Dispatcher) Serve(ctx context.Context) error {
	cons, err := d.queue.Consumer(ctx)
	if err != nil {
		return err
	}
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		d.Deliver(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	d.logger.Info("Task dispatcher started", "endpoint", d.endpoint, "consumer", d.queue.Config().Durable())

	<-ctx.Done()
	cc.Stop()
	return ctx.Err()
}

func (d *Dispatcher) String() string { return "task-dispatcher" }

// Deliver posts one delivery and settles it.
func (d *Dispatcher) Deliver(ctx context.Context, msg Delivery) Settlement {
	attempt := uint64(1)
	if meta, err := msg.Metadata(); err == nil && meta != nil {
		attempt = meta.NumDelivered
	}

	status, err := d.post(ctx, msg.Data())
	switch {
	case err == nil && status >= 200 && status < 300:
		if err := msg.Ack(); err != nil {
			d.logger.Warn("Ack failed", "error", err)
		}
		return Acked

	case err == nil && status >= 400 && status < 500:
		d.logger.Error("Task rejected, not redelivering", "status", status, "attempt", attempt)
		if err := msg.Term(); err != nil {
			d.logger.Warn("Term failed", "error", err)
		}
		return Termed
	}

	delay := d.retryDelay(attempt)
	d.logger.Warn("Task failed, redelivering", "status", status, "error", err,
		"attempt", attempt, "delay", delay)
	if err := msg.NakWithDelay(delay); err != nil {
		d.logger.Warn("Nak failed", "error", err)
	}
	return Naked
}

func (d *Dispatcher) post(ctx context.Context, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// retryDelay doubles from RetryBase per delivery, capped at RetryMax.
func (d *Dispatcher) retryDelay(attempt uint64) time.Duration {
	delay := d.RetryBase
	for i := uint64(1); i < attempt && delay < d.RetryMax; i++ {
		delay *= 2
	}
	return min(delay, d.RetryMax)
}
