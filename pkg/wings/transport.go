package wings

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/dnsx"
	"github.com/aussiebroadwan/wingsclient/pkg/httpx"
	"github.com/aussiebroadwan/wingsclient/pkg/slogx"
)

// newHTTPClient layers pacing and request logging over a transport that
// dials through the DNS cache.
func newHTTPClient(cfg Config, resolver *dnsx.Resolver, logger *slog.Logger) *http.Client {
	base := cfg.Transport
	if base == nil {
		base = newDialTransport(cfg, resolver)
	}

	var rt http.RoundTripper = slogx.NewTransport(logger, base)
	if pacer := httpx.NewPacer(cfg.RateLimit); pacer != nil {
		rt = &httpx.PacedTransport{Pacer: pacer, Next: rt}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		},
	}
}

func newDialTransport(cfg Config, resolver *dnsx.Resolver) *http.Transport {
	dialer := dnsx.NewDialer(resolver, cfg.ConnectTimeout, keepAliveIdle)
	dialer.Dialer.KeepAliveConfig.Enable = true
	dialer.Dialer.KeepAliveConfig.Idle = keepAliveIdle
	dialer.Dialer.KeepAliveConfig.Interval = keepAliveIntv

	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicit operator opt-out
		},
	}
}
