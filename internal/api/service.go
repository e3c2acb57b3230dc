package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Service runs an http.Server under a suture supervisor. Cancelling the
// Serve context triggers a graceful Shutdown bounded by ShutdownTimeout.
type Service struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

func (s *Service) String() string { return "http-server" }

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Server.Shutdown(shutdownCtx); err != nil && s.Logger != nil {
		s.Logger.Error("Shutdown error", "error", err)
	}
	return ctx.Err()
}
