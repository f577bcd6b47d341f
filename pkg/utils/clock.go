package utils

import (
	"context"
	"time"
)

// NextTick returns the next wall-clock boundary of the given interval
// after now (e.g. the top of the next minute for a one-minute interval).
func NextTick(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}

// SleepUntilNextTick blocks until the next interval boundary or until
// the context is cancelled.
func SleepUntilNextTick(ctx context.Context, interval time.Duration) error {
	wait := time.Until(NextTick(time.Now(), interval))
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
