package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &Error{Provider: "mlb", Op: "teams", StatusCode: 503, Err: errors.New("unavailable")}, true},
		{"rate limited", &Error{Provider: "mlb", Op: "teams", StatusCode: 429, Err: errors.New("slow down")}, true},
		{"not found", &Error{Provider: "mlb", Op: "roster", StatusCode: 404, Err: errors.New("missing")}, false},
		{"bad request", &Error{Provider: "mlb", Op: "stats", StatusCode: 400, Err: errors.New("bad")}, false},
		{"timeout", &Error{Provider: "mlb", Op: "teams", Err: context.DeadlineExceeded}, true},
		{"wrapped timeout", fmt.Errorf("sync: %w", context.DeadlineExceeded), true},
		{"open breaker", &Error{Provider: "mlb", Op: "teams", Err: gobreaker.ErrOpenState}, true},
		{"canceled", context.Canceled, false},
		{"decode failure", &Error{Provider: "mlb", Op: "teams", Err: errors.New("invalid character")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Provider: "mlb", Op: "standings", StatusCode: 502, Err: errors.New("bad gateway")}
	if got, want := err.Error(), "mlb standings: status 502: bad gateway"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestExtractValue(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(42), 42, true},
		{7, 7, true},
		{".267", 0.267, true},
		{" 3.45 ", 3.45, true},
		{"-.--", 0, false},
		{json.Number("12"), 12, true},
		{nil, 0, false},
		{[]int{1}, 0, false},
	}
	for _, tt := range tests {
		got, ok := ExtractValue(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractValue(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
