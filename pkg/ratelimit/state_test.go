package ratelimit

import (
	"testing"
	"time"
)

func TestState_Wait(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state State
		want  time.Duration
	}{
		{"unknown", UnknownState(), 0},
		{"block in the future", State{BlockedUntil: now.Add(20 * time.Second)}, 20 * time.Second},
		{"block lifted", State{BlockedUntil: now.Add(-time.Second)}, 0},
		{"block ends now", State{BlockedUntil: now}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Wait(now); got != tt.want {
				t.Errorf("Wait() = %v, want %v", got, tt.want)
			}
			if got := tt.state.IsBlocked(now); got != (tt.want > 0) {
				t.Errorf("IsBlocked() = %v", got)
			}
		})
	}
}

func TestState_IsLow(t *testing.T) {
	tests := []struct {
		remaining int
		want      bool
	}{
		{-1, false},
		{0, true},
		{RemainingThresholdWarning - 1, true},
		{RemainingThresholdWarning, false},
		{100, false},
	}

	for _, tt := range tests {
		if got := (State{Remaining: tt.remaining}).IsLow(); got != tt.want {
			t.Errorf("IsLow(remaining=%d) = %v, want %v", tt.remaining, got, tt.want)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{"seconds", "12", 12 * time.Second},
		{"padded", " 7 ", 7 * time.Second},
		{"missing", "", DefaultRetryAfter},
		{"garbage", "soon", DefaultRetryAfter},
		{"negative", "-5", DefaultRetryAfter},
		{"http date", now.Add(time.Minute).Format(http1123), time.Minute},
		{"past date", now.Add(-time.Minute).Format(http1123), 0},
		{"capped", "86400", MaxRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryAfter(tt.raw, now); got != tt.want {
				t.Errorf("retryAfter(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"
