package wings

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// maxBackoffExponent keeps 2^attempt inside time.Duration.
const maxBackoffExponent = 30

// Backoff returns the wait before retrying after attempt (0-based):
// 2^attempt * (0.5 + jitter) seconds floored to whole seconds, and never
// below 2^attempt / 2 seconds. jitter is clamped to [0, 1); its largest
// value yields exactly 1.5 * 2^attempt seconds for attempt >= 1.
func Backoff(attempt int, jitter float64) time.Duration {
	attempt = min(max(attempt, 0), maxBackoffExponent)
	jitter = min(max(jitter, 0), math.Nextafter(1, 0))

	base := math.Exp2(float64(attempt))
	d := time.Duration(math.Floor(base*(0.5+jitter))) * time.Second

	floor := time.Duration(base * float64(time.Second) / 2)
	return max(d, floor)
}

func defaultJitter() float64 { return rand.Float64() }

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
