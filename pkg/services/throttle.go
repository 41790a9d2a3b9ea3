package services

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces out remote writes: one entity per delay.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a throttle; a non-positive delay disables waiting.
func NewThrottle(delay time.Duration) *Throttle {
	if delay <= 0 {
		return &Throttle{}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next entity may be written or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}
