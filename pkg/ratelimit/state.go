// Package ratelimit gates requests to the news source after it signals
// throttling. It reads the Retry-After header of 429 responses and the
// X-RateLimit-Remaining / X-RateLimit-Reset pair, and keeps the resulting
// window in redis so every process sharing the cache honours it.
package ratelimit

import (
	"time"
)

// RedisKeyState holds the JSON encoded State. It lives outside the response
// cache prefix so a cache purge does not lift an active block.
const RedisKeyState = "ratelimit:astronews:state"

const (
	// DefaultRetryAfter applies when a 429 carries no usable Retry-After.
	DefaultRetryAfter = 30 * time.Second

	// MaxRetryAfter caps the block a single response can impose.
	MaxRetryAfter = 15 * time.Minute

	// RemainingThresholdWarning logs a warning once the quota drops below it.
	RemainingThresholdWarning = 5
)

// State is the rate limit window last reported by the source.
type State struct {
	// Remaining is the request quota left in the window, -1 when unknown.
	Remaining int `json:"remaining"`

	// BlockedUntil is zero unless the source asked us to back off.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when the state was derived from a response.
	LastUpdate time.Time `json:"last_update"`
}

// UnknownState is the state before any rate limit header was seen.
func UnknownState() State {
	return State{Remaining: -1}
}

// IsBlocked reports whether requests must not be sent at now.
func (s State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// Wait returns how long requests stay blocked after now, 0 if they are not.
func (s State) Wait(now time.Time) time.Duration {
	if !s.IsBlocked(now) {
		return 0
	}
	return s.BlockedUntil.Sub(now)
}

// IsLow reports whether the known quota is below the warning threshold.
func (s State) IsLow() bool {
	return s.Remaining >= 0 && s.Remaining < RemainingThresholdWarning
}
