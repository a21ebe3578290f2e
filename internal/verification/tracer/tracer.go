// Package tracer provides a small tracing abstraction for the verification
// module so callers do not depend on OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: for tests
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span; the returned context carries it to child
	// operations.
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanVerify       = "verification.verify"
	SpanProviderCall = "verification.provider.call"
)

// Attribute keys.
const (
	AttrProvider       = "provider"
	AttrOutcome        = "outcome"
	AttrErrorCategory  = "error.category"
	AttrDescriptorHash = "descriptor.hash"
	AttrCacheHit       = "cache.hit"
	AttrTrustScore     = "trust_score"
	AttrProviderCount  = "providers.invoked"
)

// Event names.
const (
	EventCircuitOpen  = "circuit.open"
	EventAuditEmitted = "audit.emitted"
)
