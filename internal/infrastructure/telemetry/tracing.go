package telemetry

import (
	"context"
	"fmt"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer of every business span
const TracerName = "github.com/fulfillcrm/backend"

// Span attribute keys shared by the application services
const (
	SpanAttrOrderID     = "order.id"
	SpanAttrTarget      = "workflow.target"
	SpanAttrActorID     = "actor.id"
	SpanAttrProductID   = "product.id"
	SpanAttrWarehouseID = "warehouse.id"
	SpanAttrQuantity    = "quantity"
	SpanAttrErrorKind   = "error.kind"
	SpanAttrReplayed    = "idempotency.replayed"
)

// SpanOption adds start attributes to a span
type SpanOption func([]attribute.KeyValue) []attribute.KeyValue

// WithAttribute sets key on the span at start
func WithAttribute(key string, value any) SpanOption {
	return func(attrs []attribute.KeyValue) []attribute.KeyValue {
		return append(attrs, toAttribute(key, value))
	}
}

// StartSpan starts an internal span from the global provider; the caller ends it.
// Transitions, ledger writes and count operations all run in-process, so
// every span is internal.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	var attrs []attribute.KeyValue
	for _, opt := range opts {
		attrs = opt(attrs)
	}
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartServiceSpan starts a span named <service>.<method>, such as inventory.receive
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttributes sets alternating key, value pairs on span. Pairs whose key
// is not a string are skipped.
func SetAttributes(span trace.Span, keyValues ...any) {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	span.SetAttributes(attrs...)
}

// RecordError marks span failed and tags it with the domain error code
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String(SpanAttrErrorKind, shared.ErrorCode(err)))
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks span successful
func SetOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case *int64:
		if v == nil {
			return attribute.String(key, "")
		}
		return attribute.Int64(key, *v)
	case bool:
		return attribute.Bool(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
