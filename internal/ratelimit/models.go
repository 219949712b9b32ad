// Package ratelimit gates intake with a per-client sliding window. Denial is
// an expected control-flow outcome, not an error: callers inspect
// Result.Allowed and translate a deny into a rate-limit-specific response.
package ratelimit

import "time"

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the suggested client wait in seconds; zero when allowed.
	RetryAfter int
}
