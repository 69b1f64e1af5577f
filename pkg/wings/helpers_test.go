package wings

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// sleepRecorder records backoff delays without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// testConfig points a Config at rawURL with deterministic backoff.
func testConfig(t *testing.T, rawURL string, rec *sleepRecorder) Config {
	t.Helper()

	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return Config{
		Host:   u.Hostname(),
		Port:   port,
		Scheme: u.Scheme,
		Token:  "node-secret",
		Logger: slogx.Discard(),
		Sleep:  rec.sleep,
		Jitter: func() float64 { return 0 },
	}
}

func newTestConnection(t *testing.T, rawURL string, mutate ...func(*Config)) (*Connection, *sleepRecorder) {
	t.Helper()

	rec := &sleepRecorder{}
	cfg := testConfig(t, rawURL, rec)
	for _, m := range mutate {
		m(&cfg)
	}
	conn, err := New(cfg)
	require.NoError(t, err)
	return conn, rec
}
