package logging

import (
	"context"
	"log/slog"
)

type correlationKey struct{}

// correlation is the set of ids a log record can be traced by. It is stored
// by value so each With* call leaves the parent context untouched.
type correlation struct {
	integration string
	stepUUID    string
	requestID   string
	clientID    string
}

func (c correlation) attrs() []slog.Attr {
	fields := [...]struct{ key, val string }{
		{"integration", c.integration},
		{"step_uuid", c.stepUUID},
		{"request_id", c.requestID},
		{"client_id", c.clientID},
	}
	var attrs []slog.Attr
	for _, f := range fields {
		if f.val != "" {
			attrs = append(attrs, slog.String(f.key, f.val))
		}
	}
	return attrs
}

func from(ctx context.Context) correlation {
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c
}

func update(ctx context.Context, fn func(*correlation)) context.Context {
	c := from(ctx)
	fn(&c)
	return context.WithValue(ctx, correlationKey{}, c)
}

func WithIntegration(ctx context.Context, name string) context.Context {
	return update(ctx, func(c *correlation) { c.integration = name })
}

// WithStepUUID tags the step being edited.
func WithStepUUID(ctx context.Context, uuid string) context.Context {
	return update(ctx, func(c *correlation) { c.stepUUID = uuid })
}

// WithRequestID tags an HTTP request; the backend client forwards it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return update(ctx, func(c *correlation) { c.requestID = id })
}

// WithClient tags an MCP client.
func WithClient(ctx context.Context, id string) context.Context {
	return update(ctx, func(c *correlation) { c.clientID = id })
}

// WithIDs sets integration, step and request in one go.
func WithIDs(ctx context.Context, integration, stepUUID, requestID string) context.Context {
	return update(ctx, func(c *correlation) {
		c.integration = integration
		c.stepUUID = stepUUID
		c.requestID = requestID
	})
}

func Integration(ctx context.Context) string { return from(ctx).integration }
func StepUUID(ctx context.Context) string    { return from(ctx).stepUUID }
func RequestID(ctx context.Context) string   { return from(ctx).requestID }
func ClientID(ctx context.Context) string    { return from(ctx).clientID }

// LogWith binds the ids found in ctx to logger, for code that logs without
// passing ctx along.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	attrs := from(ctx).attrs()
	if len(attrs) == 0 {
		return logger
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return logger.With(args...)
}

// CorrelationHandler adds the ids in the record's context to every record,
// so logger.InfoContext(ctx, ...) needs no extra attributes.
type CorrelationHandler struct {
	inner slog.Handler
}

func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := from(ctx).attrs(); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewCorrelationHandler(h.inner.WithAttrs(attrs))
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return NewCorrelationHandler(h.inner.WithGroup(name))
}
