package wings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/cryptox"
	"github.com/aussiebroadwan/wingsclient/pkg/dnsx"
	"github.com/aussiebroadwan/wingsclient/pkg/idx"
	"github.com/aussiebroadwan/wingsclient/pkg/slogx"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 64 << 20

// Connection dispatches requests to one node agent. It is safe for
// concurrent use; the credential is the only mutable state.
type Connection struct {
	cfg      Config
	endpoint Endpoint
	cred     *credential
	resolver *dnsx.Resolver
	http     *http.Client
	metrics  *Metrics
	log      *slog.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// New validates cfg, applies defaults and builds the transport.
func New(cfg Config) (*Connection, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = dnsx.NewResolver(dnsx.WithTTL(cfg.DNSCacheTTL), dnsx.WithLogger(logger))
	}

	metrics, err := NewMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("wings: metrics: %w", err)
	}

	c := &Connection{
		cfg:      cfg,
		endpoint: newEndpoint(cfg.Host, cfg.Port, cfg.Scheme),
		cred:     &credential{token: cfg.Token},
		resolver: resolver,
		metrics:  metrics,
		log:      logger,
		sleep:    cfg.Sleep,
		jitter:   cfg.Jitter,
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.jitter == nil {
		c.jitter = defaultJitter
	}
	c.http = newHTTPClient(cfg, resolver, logger)
	return c, nil
}

func (c *Connection) Endpoint() Endpoint { return c.endpoint }

func (c *Connection) BaseURL() string { return c.endpoint.BaseURL() }

// Resolver is the DNS cache the transport dials through.
func (c *Connection) Resolver() *dnsx.Resolver { return c.resolver }

func (c *Connection) AuthToken() string { return c.cred.Get() }

// SetAuthToken rotates the node secret used for both the Authorization
// header and token signing.
func (c *Connection) SetAuthToken(token string) {
	c.cred.Set(token)
	c.log.Info("node credential rotated",
		"host", c.endpoint.Host,
		"token_fp", cryptox.FingerprintToken(token),
	)
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	maxRetries int
	headers    http.Header
}

// WithMaxRetries overrides the retry budget for one call.
func WithMaxRetries(n int) CallOption {
	return func(o *callOptions) { o.maxRetries = max(n, 0) }
}

// WithHeaders adds or overrides request headers for one call.
func WithHeaders(h http.Header) CallOption {
	return func(o *callOptions) {
		for k, vs := range h {
			o.headers[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
	}
}

// WithHeader sets a single header for one call.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) { o.headers.Set(key, value) }
}

type call struct {
	method  string
	path    string
	body    []byte
	hasBody bool
	rawBody bool // body is sent verbatim, Content-Type defaults to text/plain
	rawResp bool // success body is kept verbatim
	callOptions
}

func (c *Connection) newCall(method, path string, opts []CallOption) *call {
	cl := &call{
		method: method,
		path:   path,
		callOptions: callOptions{
			maxRetries: c.cfg.MaxRetries,
			headers:    http.Header{},
		},
	}
	for _, opt := range opts {
		opt(&cl.callOptions)
	}
	return cl
}

// Request sends a JSON request. json.RawMessage and []byte bodies are sent
// as is, and a nil body is sent as {} with Content-Type application/json.
//
// GET and HEAD are the exception: they carry no body and no Content-Type
// header, even when body is nil.
func (c *Connection) Request(ctx context.Context, method, path string, body any, opts ...CallOption) (*Envelope, error) {
	cl := c.newCall(method, path, opts)
	if err := cl.setJSONBody(body); err != nil {
		return nil, err
	}
	return c.dispatch(ctx, cl)
}

func (c *Connection) Get(ctx context.Context, path string, opts ...CallOption) (*Envelope, error) {
	return c.Request(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Connection) Post(ctx context.Context, path string, body any, opts ...CallOption) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, path, body, opts...)
}

func (c *Connection) Put(ctx context.Context, path string, body any, opts ...CallOption) (*Envelope, error) {
	return c.Request(ctx, http.MethodPut, path, body, opts...)
}

func (c *Connection) Patch(ctx context.Context, path string, body any, opts ...CallOption) (*Envelope, error) {
	return c.Request(ctx, http.MethodPatch, path, body, opts...)
}

func (c *Connection) Delete(ctx context.Context, path string, opts ...CallOption) (*Envelope, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, opts...)
}

// GetRaw is Get without JSON decoding of the success body.
func (c *Connection) GetRaw(ctx context.Context, path string, opts ...CallOption) (*Envelope, error) {
	cl := c.newCall(http.MethodGet, path, opts)
	cl.rawResp = true
	return c.dispatch(ctx, cl)
}

// PostRaw posts body unmodified. Content-Type defaults to text/plain.
// The response is decoded as JSON when possible and is an empty object
// otherwise.
func (c *Connection) PostRaw(ctx context.Context, path string, body []byte, opts ...CallOption) (*Envelope, error) {
	cl := c.newCall(http.MethodPost, path, opts)
	cl.body = body
	cl.hasBody = true
	cl.rawBody = true

	env, err := c.dispatch(ctx, cl)
	if err != nil {
		return nil, err
	}
	if env.IsRaw() {
		return emptyEnvelope(env.StatusCode()), nil
	}
	return env, nil
}

func (cl *call) setJSONBody(body any) error {
	switch b := body.(type) {
	case nil:
		if cl.method == http.MethodGet || cl.method == http.MethodHead {
			return nil
		}
		cl.body = []byte("{}")
	case json.RawMessage:
		cl.body = b
	case []byte:
		cl.body = b
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("wings: encode request body: %w", err)
		}
		cl.body = encoded
	}
	if len(bytes.TrimSpace(cl.body)) == 0 || bytes.Equal(cl.body, []byte("null")) {
		cl.body = []byte("{}")
	}
	cl.hasBody = true
	return nil
}

// dispatch runs the attempt loop: Attempting(n) ends in success, a final
// classified failure, or a transient failure followed by backoff and
// Attempting(n+1). At most maxRetries+1 attempts are made.
func (c *Connection) dispatch(ctx context.Context, cl *call) (*Envelope, error) {
	start := time.Now()

	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}

	reqID := cl.headers.Get(slogx.RequestIDHeader)
	if reqID == "" {
		reqID = idx.New().String()
		cl.headers.Set(slogx.RequestIDHeader, reqID)
	}
	ctx, logger := slogx.WithRequestID(ctx, c.log, reqID, "method", cl.method, "path", cl.path)

	env, err := c.retryLoop(ctx, cl, logger)
	c.metrics.observe(cl.method, err, time.Since(start))
	return env, err
}

func (c *Connection) retryLoop(ctx context.Context, cl *call, logger *slog.Logger) (*Envelope, error) {
	url := c.endpoint.url(cl.path)

	for attempt := 0; ; attempt++ {
		env, err := c.attempt(ctx, cl, url)
		if err == nil {
			return env, nil
		}

		var authErr *AuthError
		var reqErr *RequestError
		if errors.As(err, &authErr) || errors.As(err, &reqErr) {
			return nil, err
		}

		kind := classify(err)
		connErr := &ConnectionError{
			Method:   cl.method,
			URL:      url,
			Attempts: attempt + 1,
			Reason:   kind.String(),
			Err:      err,
		}

		if ctx.Err() != nil || !kind.transient() || attempt >= cl.maxRetries {
			logger.Warn("node request failed",
				"attempts", attempt+1,
				"reason", kind.String(),
				"error", err,
			)
			return nil, connErr
		}

		delay := Backoff(attempt, c.jitter())
		logger.Warn("node request failed, retrying",
			"attempt", attempt+1,
			"max_retries", cl.maxRetries,
			"delay", delay,
			"reason", kind.String(),
			"error", err,
		)
		c.metrics.retry(kind)

		if serr := c.sleep(ctx, delay); serr != nil {
			return nil, connErr
		}
	}
}

// attempt performs one exchange and classifies the HTTP status.
func (c *Connection) attempt(ctx context.Context, cl *call, url string) (*Envelope, error) {
	var body io.Reader
	if cl.hasBody {
		body = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.applyHeaders(req, cl)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return emptyEnvelope(resp.StatusCode), nil
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, httpError(resp.StatusCode, errorField(data), cl.path)
	case cl.rawResp:
		return NewRawEnvelope(resp.StatusCode, data), nil
	}
	return decodeEnvelope(resp.StatusCode, data), nil
}

// applyHeaders sets defaults first so caller headers win.
func (c *Connection) applyHeaders(req *http.Request, cl *call) {
	h := req.Header
	h.Set("Accept", "application/json")
	if cl.hasBody {
		if cl.rawBody {
			h.Set("Content-Type", "text/plain")
		} else {
			h.Set("Content-Type", "application/json")
		}
	}
	h.Set("User-Agent", c.cfg.UserAgent)
	h.Set("Connection", "keep-alive")
	if token := c.cred.Get(); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}

	for k, vs := range cl.headers {
		h[k] = append([]string(nil), vs...)
	}
}

// errorField extracts the "error" member of a JSON error body.
func errorField(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if s, ok := payload["error"].(string); ok {
		return s
	}
	return ""
}
