package httpx

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Enabled reports whether the config describes a usable limit.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerWindow > 0 && c.Window > 0
}

// DefaultNodeLimit paces calls to a single node agent.
// Override with: RATELIMIT_NODE_REQUESTS, RATELIMIT_NODE_WINDOW_SEC, RATELIMIT_NODE_BURST
var DefaultNodeLimit = RateLimitConfig{
	RequestsPerWindow: 600,
	Window:            time.Minute,
	Burst:             60,
}

func init() {
	DefaultNodeLimit = ParseRateLimitFromEnv("NODE", DefaultNodeLimit)
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// For example: RATELIMIT_NODE_REQUESTS, RATELIMIT_NODE_WINDOW_SEC, RATELIMIT_NODE_BURST
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// KeyExtractor picks the pacing key for an outbound request.
type KeyExtractor func(*http.Request) string

// HostKeyExtractor paces by target host:port.
func HostKeyExtractor(r *http.Request) string {
	return strings.ToLower(r.URL.Host)
}

// Pacer hands out per-key token buckets. Callers block in Wait until a
// token is available or the context ends.
type Pacer struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	mu       sync.Mutex
	// Cleanup old limiters periodically
	lastCleanup time.Time
}

// NewPacer builds a pacer from config. A disabled config yields nil; a
// nil *Pacer never blocks.
func NewPacer(config RateLimitConfig) *Pacer {
	if !config.Enabled() {
		return nil
	}

	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Pacer{
		rate:        rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// Wait blocks until key may proceed.
func (p *Pacer) Wait(ctx context.Context, key string) error {
	if p == nil || key == "" {
		return nil
	}

	if err := p.getLimiter(key).Wait(ctx); err != nil {
		return fmt.Errorf("httpx: pacing %s: %w", key, err)
	}
	return nil
}

// Allow reports whether key may proceed now without waiting.
func (p *Pacer) Allow(key string) bool {
	if p == nil || key == "" {
		return true
	}
	return p.getLimiter(key).Allow()
}

// getLimiter retrieves or creates a rate limiter for the given key
func (p *Pacer) getLimiter(key string) *rate.Limiter {
	if limiter, ok := p.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(p.rate, p.burst)
	actual, _ := p.limiters.LoadOrStore(key, limiter)

	p.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose buckets are full, i.e. idle keys.
func (p *Pacer) maybeCleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastCleanup) < 5*time.Minute {
		return
	}

	p.lastCleanup = time.Now()

	p.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(p.burst) {
			p.limiters.Delete(key)
		}
		return true
	})
}

// PacedTransport waits on a Pacer before handing the request to Next.
type PacedTransport struct {
	Pacer *Pacer
	Key   KeyExtractor
	Next  http.RoundTripper
}

func (t *PacedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	key := HostKeyExtractor
	if t.Key != nil {
		key = t.Key
	}

	k := key(r)
	if t.Pacer != nil && !t.Pacer.Allow(k) {
		slogx.FromContext(r.Context()).Debug("pacing outbound request", "key", k)
		if err := t.Pacer.Wait(r.Context(), k); err != nil {
			return nil, err
		}
	}

	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(r)
}
