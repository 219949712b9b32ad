package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"leadgate/internal/ratelimit"
	"leadgate/internal/ratelimit/bucket"
)

func newLimiter(t *testing.T, limit int, window time.Duration, now func() time.Time) *ratelimit.Service {
	t.Helper()
	store := bucket.NewInMemory(bucket.WithClock(now))
	svc, err := ratelimit.New(store, limit, window)
	require.NoError(t, err)
	return svc
}

func TestDeniesAfterLimitWithinWindow(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newLimiter(t, 5, time.Hour, func() time.Time { return current })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := svc.Check(ctx, "203.0.113.7")
		require.NoError(t, err)
		require.True(t, result.Allowed, "attempt %d should be allowed", i+1)
		require.Equal(t, 5-(i+1), result.Remaining)
	}

	// The (N+1)-th check within the window is denied.
	result, err := svc.Check(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, 0, result.Remaining)
	require.GreaterOrEqual(t, result.RetryAfter, 1)
}

func TestAllowsAgainAfterWindowElapses(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newLimiter(t, 2, time.Hour, func() time.Time { return current })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := svc.Check(ctx, "client-a")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}
	result, err := svc.Check(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, result.Allowed)

	// Advance past the window; the counter has slid off.
	current = current.Add(time.Hour + time.Second)
	result, err = svc.Check(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestClientsAreIndependent(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newLimiter(t, 1, time.Hour, func() time.Time { return current })
	ctx := context.Background()

	result, err := svc.Check(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = svc.Check(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, result.Allowed)

	result, err = svc.Check(ctx, "client-b")
	require.NoError(t, err)
	require.True(t, result.Allowed, "a denial for one client must not leak to another")
}

func TestConcurrentChecksNeverExceedLimit(t *testing.T) {
	const limit = 5
	svc := newLimiter(t, limit, time.Hour, time.Now)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Check(ctx, "shared-client")
			require.NoError(t, err)
			if result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, limit, allowed, "check-and-increment must be atomic per client")
}

func TestConstructorValidation(t *testing.T) {
	store := bucket.NewInMemory()

	_, err := ratelimit.New(nil, 5, time.Hour)
	require.Error(t, err)
	_, err = ratelimit.New(store, 0, time.Hour)
	require.Error(t, err)
	_, err = ratelimit.New(store, 5, 0)
	require.Error(t, err)
}
