package retry

import "time"

// ExponentialBackoff returns the wait before retry number attempt, base * 2^attempt.
// Do sleeps this long between attempts; queue redelivery uses it to space
// out failed tasks.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}
