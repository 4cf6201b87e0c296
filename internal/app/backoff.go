package app

import "time"

// Default retry configuration values.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1000 * time.Millisecond
)

// backoff computes exponential retry delays: base * 2^attempt, optionally capped.
type backoff struct {
	base time.Duration
	max  time.Duration
}

// newBackoff creates a backoff with the given base delay and cap (0 = uncapped).
func newBackoff(base, max time.Duration) backoff {
	return backoff{base: base, max: max}
}

// Delay returns the wait after failed attempt n (0-based).
func (b backoff) Delay(attempt int) time.Duration {
	if b.base <= 0 {
		return 0
	}
	d := b.base
	for i := 0; i < attempt; i++ {
		if d > maxDuration/2 {
			d = maxDuration
			break
		}
		d *= 2
	}
	if b.max > 0 && d > b.max {
		d = b.max
	}
	return d
}

// Total returns the sum of the delays that precede the final attempt of n attempts.
func (b backoff) Total(attempts int) time.Duration {
	var total time.Duration
	for i := 0; i < attempts-1; i++ {
		total += b.Delay(i)
	}
	return total
}

const maxDuration = time.Duration(1<<63 - 1)
