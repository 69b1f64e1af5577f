package wings

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		jitter  float64
		want    time.Duration
	}{
		{0, 0, 500 * time.Millisecond},
		{0, 0.6, time.Second},
		{1, 0, time.Second},
		{1, 0.999, 2 * time.Second},
		{2, 0.25, 3 * time.Second},
		{3, 0.5, 8 * time.Second},
		{4, 0, 8 * time.Second},
	}

	for _, tt := range tests {
		got := Backoff(tt.attempt, tt.jitter)
		require.Equal(t, tt.want, got, "attempt=%d jitter=%v", tt.attempt, tt.jitter)
	}
}

func TestBackoffBounds(t *testing.T) {
	t.Parallel()

	for attempt := range 8 {
		base := time.Duration(1<<attempt) * time.Second
		for _, j := range []float64{0, 0.1, 0.33, 0.5, 0.75, 0.9999} {
			d := Backoff(attempt, j)
			require.GreaterOrEqual(t, d, base/2)
			require.LessOrEqual(t, d, base*3/2)
		}
	}
}

func TestBackoffClampsInput(t *testing.T) {
	t.Parallel()

	require.Equal(t, Backoff(0, 0), Backoff(-3, -1))
	require.Equal(t, 6*time.Second, Backoff(2, 5))
	require.Positive(t, Backoff(1000, 0.5))
}

func TestBackoffReachesUpperBound(t *testing.T) {
	t.Parallel()

	top := math.Nextafter(1, 0)
	for attempt := 1; attempt < 8; attempt++ {
		base := time.Duration(1<<attempt) * time.Second
		require.Equal(t, base*3/2, Backoff(attempt, top), "attempt=%d", attempt)
	}
	require.Equal(t, time.Second, Backoff(0, top))
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
