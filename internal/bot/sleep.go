package bot

import (
	"context"
	"time"
)

// sleepSlice bounds the cancellation latency while sleeping.
const sleepSlice = 100 * time.Millisecond

// smartSleep sleeps for the given duration in short slices with a
// cancellation check between each slice.
// It returns false if the context was cancelled before the duration passed.
func smartSleep(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if remaining > sleepSlice {
			remaining = sleepSlice
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(remaining):
		}
	}
}
