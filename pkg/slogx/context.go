package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

type ctxLogger struct {
	logger *slog.Logger
	// scoped is set once the logger carries req_id and the call attributes.
	scoped bool
}

// WithContext attaches logger to ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, ctxLogger{logger: logger})
}

// FromContext returns the logger attached to ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if v, ok := ctx.Value(ctxKey{}).(ctxLogger); ok && v.logger != nil {
		return v.logger
	}
	return slog.Default()
}

// WithRequestID scopes the context logger to one outbound call. When ctx
// carries no logger, fallback is used. attrs are added after req_id.
// Transport skips the attributes already present on a scoped logger.
func WithRequestID(ctx context.Context, fallback *slog.Logger, reqID string, attrs ...any) (context.Context, *slog.Logger) {
	l, ok := fromContext(ctx)
	if !ok {
		l = fallback
	}
	if l == nil {
		l = slog.Default()
	}
	l = l.With(append([]any{"req_id", reqID}, attrs...)...)
	return context.WithValue(ctx, ctxKey{}, ctxLogger{logger: l, scoped: true}), l
}

func fromContext(ctx context.Context) (*slog.Logger, bool) {
	v, ok := ctx.Value(ctxKey{}).(ctxLogger)
	if !ok || v.logger == nil {
		return nil, false
	}
	return v.logger, true
}

func scopedFromContext(ctx context.Context) (*slog.Logger, bool) {
	v, ok := ctx.Value(ctxKey{}).(ctxLogger)
	if !ok || v.logger == nil || !v.scoped {
		return nil, false
	}
	return v.logger, true
}
