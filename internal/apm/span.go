package apm

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
)

// Span is the part of trace.Span the service records on.
type Span interface {
	SetAttributes(values ...attribute.KeyValue)
	AddEvent(name string, options ...trace.EventOption)
	// Fail records err and marks the span failed with its error code.
	Fail(err error)
	// Succeed marks the span ok.
	Succeed()
	TraceID() string
	End(options ...trace.SpanEndOption)
}

type traceSpan struct {
	span trace.Span
}

// NewSpan wraps an OpenTelemetry span.
func NewSpan(span trace.Span) Span {
	return &traceSpan{span: span}
}

func (t *traceSpan) SetAttributes(values ...attribute.KeyValue) {
	t.span.SetAttributes(values...)
}

func (t *traceSpan) AddEvent(name string, options ...trace.EventOption) {
	t.span.AddEvent(name, options...)
}

func (t *traceSpan) Fail(err error) {
	if err == nil {
		return
	}
	code := string(apperror.GetCode(err))
	t.span.RecordError(err)
	t.span.SetAttributes(attribute.String("error.code", code))
	t.span.SetStatus(codes.Error, code)
}

func (t *traceSpan) Succeed() {
	t.span.SetStatus(codes.Ok, "")
}

func (t *traceSpan) TraceID() string {
	sc := t.span.SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func (t *traceSpan) End(options ...trace.SpanEndOption) {
	t.span.End(options...)
}
