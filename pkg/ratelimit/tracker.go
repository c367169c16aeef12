package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	remainingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "astronews_rate_limit_remaining",
		Help: "Requests remaining in the current source rate limit window (-1 if unknown)",
	})

	blocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astronews_rate_limit_blocks_total",
		Help: "Total number of requests refused locally while the source throttles us",
	})

	throttledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astronews_rate_limit_throttled_total",
		Help: "Total number of 429 responses received from the source",
	})
)

// Tracker records the source's rate limit signals and answers whether a
// request may be sent. Without redis the state is kept in memory.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	local State
}

// NewTracker creates a new rate limit tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
		local:  UnknownState(),
	}
}

// GetState returns the current state. Missing redis data means unknown.
func (t *Tracker) GetState(ctx context.Context) (State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.local, nil
	}

	raw, err := t.redis.Get(ctx, RedisKeyState).Bytes()
	if errors.Is(err, redis.Nil) {
		return UnknownState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("get rate limit state: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode rate limit state: %w", err)
	}
	return state, nil
}

func (t *Tracker) setState(ctx context.Context, state State) error {
	remainingGauge.Set(float64(state.Remaining))

	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode rate limit state: %w", err)
	}

	// Keep the key around a little past the block so stale quota data ages out.
	ttl := time.Minute
	if wait := state.Wait(t.now()); wait > 0 {
		ttl += wait
	}

	if err := t.redis.Set(ctx, RedisKeyState, data, ttl).Err(); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// Update derives the state from a response. Responses without rate limit
// information leave the state unchanged.
func (t *Tracker) Update(ctx context.Context, status int, headers http.Header) error {
	now := t.now()
	state := UnknownState()
	seen := false

	if raw := headers.Get("X-RateLimit-Remaining"); raw != "" {
		remaining, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
		}
		state.Remaining = remaining
		seen = true

		if remaining == 0 {
			reset, err := parseSeconds(headers.Get("X-RateLimit-Reset"))
			if err != nil {
				return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
			}
			state.BlockedUntil = now.Add(min(reset, MaxRetryAfter))
		}
	}

	if status == http.StatusTooManyRequests {
		throttledTotal.Inc()
		state.BlockedUntil = now.Add(retryAfter(headers.Get("Retry-After"), now))
		seen = true
	}

	if !seen {
		return nil
	}
	state.LastUpdate = now

	if err := t.setState(ctx, state); err != nil {
		return err
	}

	switch {
	case state.IsBlocked(now):
		t.logger.Warn().
			Int("status", status).
			Time("blocked_until", state.BlockedUntil).
			Msg("News source rate limit reached - pausing requests")
	case state.IsLow():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("News source rate limit almost exhausted")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Msg("Rate limit state updated")
	}

	return nil
}

// Allow reports whether a request may be sent now. When it may not, the
// returned duration is the time left until the block lifts.
func (t *Tracker) Allow(ctx context.Context) (bool, time.Duration, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return true, 0, err
	}

	wait := state.Wait(t.now())
	if wait == 0 {
		return true, 0, nil
	}

	blocksTotal.Inc()
	t.logger.Debug().
		Dur("wait", wait).
		Msg("Request refused - source rate limit active")
	return false, wait, nil
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date.
func retryAfter(raw string, now time.Time) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultRetryAfter
	}
	if d, err := parseSeconds(raw); err == nil {
		return min(d, MaxRetryAfter)
	}
	if at, err := http.ParseTime(raw); err == nil {
		return min(max(at.Sub(now), 0), MaxRetryAfter)
	}
	return DefaultRetryAfter
}

func parseSeconds(raw string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative seconds %d", n)
	}
	return time.Duration(n) * time.Second, nil
}
