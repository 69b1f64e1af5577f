package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aussiebroadwan/wingsclient/pkg/dnsx"
	"github.com/aussiebroadwan/wingsclient/pkg/slogx"
	"github.com/aussiebroadwan/wingsclient/pkg/wings"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application wires logging, metrics, the DNS cache and the node client
// from a Config.
type Application struct {
	cfg      Config
	logger   *slog.Logger
	registry *prometheus.Registry
	resolver *dnsx.Resolver
	client   *wings.Client
}

// Option adjusts New.
type Option func(*options)

type options struct {
	logOutput io.Writer
	transport http.RoundTripper
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithTransport replaces the dialing transport of the node client.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// New creates an Application with all dependencies initialized.
func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "wingsctl",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  o.logOutput,
		}),
		registry: prometheus.NewRegistry(),
	}

	app.resolver = dnsx.NewResolver(
		dnsx.WithTTL(cfg.DNSCacheTTL),
		dnsx.WithLogger(app.logger),
	)

	client, err := wings.NewClient(wings.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		Scheme:             cfg.Scheme,
		Token:              cfg.Token,
		Timeout:            cfg.Timeout,
		ConnectTimeout:     cfg.ConnectTimeout,
		CallTimeout:        cfg.CallTimeout,
		MaxRetries:         cfg.MaxRetries,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		UserAgent:          "wingsctl/" + BuildVersion,
		TokenTTL:           cfg.TokenTTL,
		TokenAlgorithm:     cfg.TokenAlgorithm,
		TokenIssuer:        cfg.TokenIssuer,
		Resolver:           app.resolver,
		RateLimit:          cfg.RateLimit(),
		Logger:             app.logger,
		Registerer:         app.registry,
		Transport:          o.transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create node client: %w", err)
	}
	app.client = client

	if cfg.InsecureSkipVerify {
		app.logger.Warn("TLS verification disabled for node", "host", cfg.Host)
	}
	app.logger.Debug("node client ready",
		"base_url", client.Connection().BaseURL(),
		"max_retries", cfg.MaxRetries,
		"call_timeout", cfg.CallTimeout,
	)
	return app, nil
}

func (a *Application) Logger() *slog.Logger { return a.logger }

func (a *Application) Client() *wings.Client { return a.client }

// Registry holds the client metrics.
func (a *Application) Registry() *prometheus.Registry { return a.registry }

// Diagnose runs the connection diagnostics.
func (a *Application) Diagnose(ctx context.Context) wings.Diagnostics {
	return a.client.Connection().Diagnostics(ctx)
}

// Resolve reports how host resolves through the shared DNS cache.
func (a *Application) Resolve(ctx context.Context, host string) dnsx.Report {
	return a.resolver.TestResolution(ctx, host)
}

// WebsocketURL signs a console URL for serverUUID.
func (a *Application) WebsocketURL(serverUUID, userUUID string, permissions []string) (string, error) {
	tokens, err := a.client.Tokens()
	if err != nil {
		return "", fmt.Errorf("token signing needs a node token (WINGS_TOKEN): %w", err)
	}
	return tokens.WebsocketURL(serverUUID, userUUID, permissions)
}
