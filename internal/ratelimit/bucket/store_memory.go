// Package bucket provides sliding-window counter stores for the rate limiter.
package bucket

import (
	"context"
	"sync"
	"time"

	"leadgate/internal/ratelimit"
)

// InMemory implements a sliding-window store with timestamped queues pruned
// under the same lock as the increment, so check-and-increment is atomic per
// key. Single-node only; multi-instance deployments use the Redis store.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	timestamps []time.Time
}

// Option configures the store.
type Option func(*InMemory)

// WithClock injects a clock so tests can drive the window without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *InMemory) {
		s.now = now
	}
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow prunes expired entries for key, then records the attempt if the count
// is under limit. The boundary case matters: two concurrent calls at
// count == limit-1 must not both succeed, which the single lock guarantees.
func (s *InMemory) Allow(ctx context.Context, key string, limit int, windowDur time.Duration) (*ratelimit.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.windows[key]
	if w == nil {
		w = &window{}
		s.windows[key] = w
	}
	w.prune(now.Add(-windowDur))

	if len(w.timestamps) >= limit {
		resetAt := w.timestamps[0].Add(windowDur)
		return &ratelimit.Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(now, resetAt),
		}, nil
	}

	w.timestamps = append(w.timestamps, now)
	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(w.timestamps),
		ResetAt:   w.timestamps[0].Add(windowDur),
	}, nil
}

// Reset clears the counter for a key.
func (s *InMemory) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (w *window) prune(cutoff time.Time) {
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]
}

func retryAfterSeconds(now, resetAt time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
