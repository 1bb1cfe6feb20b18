package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for application spans.
const TracerName = "github.com/erp/purchasing"

// Span attribute keys shared by the application layer.
var (
	AttrOrderID     = attribute.Key("purchase_order.id")
	AttrOrderNumber = attribute.Key("purchase_order.number")
	AttrEvent       = attribute.Key("purchase_order.event")
	AttrProductID   = attribute.Key("inventory.product_id")
	AttrDelta       = attribute.Key("inventory.delta")
)

// StartSpan starts an internal span named name. Callers must End it.
//
//	ctx, span := telemetry.StartSpan(ctx, "inventory.adjust", telemetry.AttrDelta.Int64(5))
//	defer span.End()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
