package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the token bucket transports use to admit tool calls. A refused
// call is reported to the client immediately; only callers that prefer
// queueing over refusal use Wait.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter returns a bucket refilled at perSecond tokens with the given
// burst capacity.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow takes n tokens if they are available right now.
func (l *Limiter) Allow(n int) bool {
	return l.bucket.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.bucket.WaitN(ctx, n)
}
