package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// BucketStore is the sliding-window counter behind the limiter.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// Metrics receives denial counts; satisfied by internal/platform/metrics.
type Metrics interface {
	RecordRateLimitDenied()
}

// Service applies the submission rate limit per client identifier.
type Service struct {
	buckets BucketStore
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics Metrics
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New builds a limiter allowing limit events per window per client.
func New(buckets BucketStore, limit int, window time.Duration, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("bucket store is required")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}

	svc := &Service{
		buckets: buckets,
		limit:   limit,
		window:  window,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check records an attempt for clientID and reports whether it is allowed
// within the configured window.
func (s *Service) Check(ctx context.Context, clientID string) (*Result, error) {
	result, err := s.buckets.Allow(ctx, clientID, s.limit, s.window)
	if err != nil {
		return nil, err
	}

	if !result.Allowed {
		if s.metrics != nil {
			s.metrics.RecordRateLimitDenied()
		}
		s.logger.WarnContext(ctx, "submission rate limit exceeded",
			"client_id", clientID,
			"limit", s.limit,
			"window_seconds", int(s.window.Seconds()),
			"retry_after", result.RetryAfter,
		)
	}
	return result, nil
}
