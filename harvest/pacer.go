package harvest

import (
	"context"
	"time"
)

// sleepFunc pauses for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepCtx is the production sleepFunc.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pacer inserts a fixed pause before every network fetch. It does not
// adapt to observed responses.
type pacer struct {
	delay time.Duration
	sleep sleepFunc
}

// Wait blocks for the configured delay. It returns early with the context
// error when ctx is cancelled.
func (p pacer) Wait(ctx context.Context) error {
	return p.sleep(ctx, p.delay)
}
