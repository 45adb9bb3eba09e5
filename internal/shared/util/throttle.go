package util

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle paces work to a per-second budget. A nil *Throttle does not pace.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows perSecond events with bursts of up to burst. A budget of
// zero or less disables pacing and returns nil.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if perSecond <= 0 {
		return nil
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))}
}

// Wait blocks until the next event may start or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}

// PerSecond returns the budget; 0 means unlimited.
func (t *Throttle) PerSecond() float64 {
	if t == nil {
		return 0
	}
	return float64(t.limiter.Limit())
}
