package app

import (
	"math"
	"time"

	"golang.org/x/time/rate"
)

// intervalLimiter enforces a minimum interval between successful sends.
// A token is only consumed when a send succeeds, so retries after a failure
// wait relative to the last success, not the last attempt.
type intervalLimiter struct {
	lim *rate.Limiter
}

// tokenEpsilon absorbs float error left over after waiting out a full interval.
const tokenEpsilon = 1e-9

func newIntervalLimiter(interval time.Duration) *intervalLimiter {
	return &intervalLimiter{lim: rate.NewLimiter(limitFor(interval), 1)}
}

func limitFor(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}

// Delay returns how long a send at now must wait.
func (l *intervalLimiter) Delay(now time.Time) time.Duration {
	limit := l.lim.Limit()
	if limit == rate.Inf {
		return 0
	}
	tokens := l.lim.TokensAt(now)
	if tokens >= 1-tokenEpsilon || math.IsNaN(tokens) {
		return 0
	}
	return time.Duration(math.Ceil((1 - tokens) / float64(limit) * float64(time.Second)))
}

// Sent records a successful send at t.
func (l *intervalLimiter) Sent(t time.Time) {
	if l.lim.Limit() == rate.Inf {
		return
	}
	// ReserveN always takes the token, even when float rounding leaves
	// the bucket a hair below one.
	l.lim.ReserveN(t, 1)
}

// SetInterval changes the interval; safe to call while a send is in progress.
func (l *intervalLimiter) SetInterval(now time.Time, interval time.Duration) {
	l.lim.SetLimitAt(now, limitFor(interval))
}

// Interval returns the configured interval (0 = unlimited).
func (l *intervalLimiter) Interval() time.Duration {
	limit := l.lim.Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(time.Second) / float64(limit)))
}
