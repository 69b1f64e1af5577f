package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/wingsclient/pkg/idx"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Transport logs outbound requests. The logger attached to the request
// context wins over Base. A logger scoped by WithRequestID already
// carries req_id, method and path, so only host is added to it.
type Transport struct {
	Base   *slog.Logger
	Next   http.RoundTripper
	Silent bool // skip the per-request info line, errors are still logged
}

// NewTransport wraps next with request logging. A nil next uses
// http.DefaultTransport.
func NewTransport(base *slog.Logger, next http.RoundTripper) *Transport {
	return &Transport{Base: base, Next: next}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = idx.New().String()
		r = r.Clone(r.Context())
		r.Header.Set(RequestIDHeader, reqID)
	}

	logger := t.logger(r, reqID)

	resp, err := t.next().RoundTrip(r)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("http_request_failed",
			"duration_ms", duration,
			"error", err,
		)
		return nil, err
	}

	if !t.Silent {
		logger.Info("http_request",
			"status", resp.StatusCode,
			"duration_ms", duration,
		)
	}
	return resp, nil
}

// logger returns the scoped context logger with only host added, or
// builds the full set of request attributes on an unscoped one.
func (t *Transport) logger(r *http.Request, reqID string) *slog.Logger {
	if l, ok := scopedFromContext(r.Context()); ok {
		return l.With("host", r.URL.Host)
	}

	l, ok := fromContext(r.Context())
	if !ok {
		l = t.Base
	}
	if l == nil {
		l = slog.Default()
	}
	return l.With(
		"req_id", reqID,
		"method", r.Method,
		"host", r.URL.Host,
		"path", r.URL.Path,
	)
}

func (t *Transport) next() http.RoundTripper {
	if t.Next != nil {
		return t.Next
	}
	return http.DefaultTransport
}
