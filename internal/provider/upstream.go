package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/hankstank/mlb-data/internal/metrics"
)

// UpstreamConfig configures an Upstream HTTP client.
type UpstreamConfig struct {
	Name              string // provider label in errors, logs, metrics
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
	UserAgent         string
}

// Upstream is the HTTP plumbing shared by the provider clients: a token
// bucket limiter, a bounded per-request timeout and a circuit breaker that
// only counts transient failures.
type Upstream struct {
	name       string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewUpstream creates a rate-limited, breaker-protected upstream client.
func NewUpstream(cfg UpstreamConfig, m *metrics.Metrics, logger *slog.Logger) *Upstream {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	rps := float64(cfg.RequestsPerMinute) / 60.0

	u := &Upstream{
		name:       cfg.Name,
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		metrics:    m,
		logger:     logger,
	}

	m.SetBreakerState(cfg.Name, 0)
	u.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			m.SetBreakerState(name, breakerGauge(to))
		},
		// 4xx responses are the caller's problem, not the upstream's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
	})
	return u
}

// Get performs a rate-limited GET and returns the response body.
// Non-2xx responses come back as *Error carrying the status code.
func (u *Upstream) Get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	if err := u.limiter.Wait(ctx); err != nil {
		return nil, &Error{Provider: u.name, Op: op, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	start := time.Now()
	body, err := u.breaker.Execute(func() ([]byte, error) {
		return u.do(ctx, op, path, params)
	})
	u.metrics.ProviderRequest(u.name, op, statusClass(err), time.Since(start))

	if err != nil {
		var pe *Error
		if !errors.As(err, &pe) {
			err = &Error{Provider: u.name, Op: op, Err: err}
		}
		return nil, err
	}
	return body, nil
}

func (u *Upstream) do(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	target := u.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Provider: u.name, Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Provider: u.name, Op: op, Err: fmt.Errorf("http request %s: %w", path, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: u.name, Op: op, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Provider:   u.name,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(truncate(body, 200)),
		}
	}
	return body, nil
}

// State reports the breaker state, for health output.
func (u *Upstream) State() string {
	return u.breaker.State().String()
}

func statusClass(err error) string {
	if err == nil {
		return "2xx"
	}
	var pe *Error
	if errors.As(err, &pe) && pe.StatusCode != 0 {
		return strconv.Itoa(pe.StatusCode/100) + "xx"
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "rejected"
	}
	return "error"
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
