package syncer

import "time"

// Bounded exponential backoff for retryable replay failures: 2s base,
// doubling per attempt, capped at 5 minutes. The source system left the
// curve unspecified; these constants keep a flaky link from hammering the
// backend while still converging quickly after short outages.
const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// Backoff returns the delay before the given retry attempt (0-based:
// attempt 0 already failed once).
func Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := backoffBase << uint(retryCount)
	if d <= 0 || d > backoffCap {
		return backoffCap
	}
	return d
}
