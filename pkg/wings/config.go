package wings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/dnsx"
	"github.com/aussiebroadwan/wingsclient/pkg/httpx"
	"github.com/prometheus/client_golang/prometheus"
)

// Defaults applied by New when a Config field is left zero.
const (
	DefaultScheme         = "https"
	DefaultPort           = 8080
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultCallTimeout    = 2 * time.Minute
	DefaultMaxRetries     = 3
	DefaultUserAgent      = "wingsclient/1.0"

	// MaxRedirects caps redirect hops per attempt.
	MaxRedirects = 3

	keepAliveIdle = 60 * time.Second
	keepAliveIntv = 30 * time.Second
)

// Config describes how to reach one node agent.
type Config struct {
	Host   string
	Port   int
	Scheme string // "http" or "https"

	// Token is the node secret: the bearer credential and the signing key
	// for capability tokens. It may be empty and set later.
	Token string

	// Timeout bounds one attempt, ConnectTimeout bounds its dial.
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// CallTimeout bounds a whole call including retries and backoff.
	// Negative disables it.
	CallTimeout time.Duration
	// MaxRetries is the default retry budget per call. Negative means none.
	MaxRetries int

	// InsecureSkipVerify disables TLS certificate verification. Only for
	// nodes with self-signed certificates you already trust.
	InsecureSkipVerify bool

	UserAgent string

	// Token issuer settings.
	TokenTTL       time.Duration
	TokenAlgorithm string
	// TokenIssuer is the "iss" of issued tokens, usually the panel URL.
	TokenIssuer string

	// Resolver is shared with other connections for process-wide DNS
	// caching. Nil creates a private one with DNSCacheTTL.
	Resolver    *dnsx.Resolver
	DNSCacheTTL time.Duration

	// RateLimit paces requests per node. Zero value disables pacing.
	RateLimit httpx.RateLimitConfig

	Logger *slog.Logger
	// Registerer receives the client metrics. Nil skips registration.
	Registerer prometheus.Registerer

	// Transport replaces the default dialing transport, mostly for tests.
	Transport http.RoundTripper
	// Sleep and Jitter replace the backoff clock and randomness.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() float64
}

func (c Config) withDefaults() Config {
	c.Scheme = strings.ToLower(strings.TrimSpace(c.Scheme))
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.Scheme {
	case "http", "https":
	default:
		errs = append(errs, fmt.Errorf("unsupported scheme %q", c.Scheme))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("wings: invalid config: %w", err)
	}
	return nil
}

// Endpoint is the immutable address of a node agent.
type Endpoint struct {
	Host   string
	Port   int
	Scheme string
}

func newEndpoint(host string, port int, scheme string) Endpoint {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	host = strings.TrimRight(host, "/")
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return Endpoint{Host: host, Port: port, Scheme: strings.ToLower(scheme)}
}

// BaseURL is scheme://host:port with no trailing slash. IPv6 literals are
// bracketed.
func (e Endpoint) BaseURL() string {
	return e.Scheme + "://" + e.Address()
}

// Address is host:port as dialed.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) url(path string) string {
	if path == "" {
		return e.BaseURL()
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.BaseURL() + path
}
