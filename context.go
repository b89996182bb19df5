package auditlog

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// metaKey is an unexported context key type.
type metaKey struct{}
type skipKey struct{}

// meta carries operational context for audit events.
type meta struct {
	actor         string
	correlationID string
	tenant        string
}

// Provider looks up one piece of event metadata. A nil Provider yields "".
type Provider func(ctx context.Context) string

func provide(ctx context.Context, p Provider) string {
	if p == nil {
		return ""
	}
	return p(ctx)
}

// WithActor attaches the acting user to the context.
func WithActor(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.actor = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithCorrelationID attaches a correlation identifier.
func WithCorrelationID(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.correlationID = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithTenant attaches a tenant identifier.
func WithTenant(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.tenant = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithSkip marks the context so saves made with it are not audited.
func WithSkip(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipKey{}, true)
}

// ActorFromContext is the default actor provider.
func ActorFromContext(ctx context.Context) string {
	return extractMeta(ctx).actor
}

// CorrelationIDFromContext is the default correlation provider. Without an explicit
// id it falls back to the trace id of the span in ctx.
func CorrelationIDFromContext(ctx context.Context) string {
	if id := extractMeta(ctx).correlationID; id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// TenantFromContext is the default tenant provider.
func TenantFromContext(ctx context.Context) string {
	return extractMeta(ctx).tenant
}

// extractMeta extracts metadata from context.
func extractMeta(ctx context.Context) meta {
	if v := ctx.Value(metaKey{}); v != nil {
		if m, ok := v.(meta); ok {
			return m
		}
	}
	return meta{}
}

// extractSkip extracts skip flag from context.
func extractSkip(ctx context.Context) bool {
	if v, ok := ctx.Value(skipKey{}).(bool); ok {
		return v
	}
	return false
}
