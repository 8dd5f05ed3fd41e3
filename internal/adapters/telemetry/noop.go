package telemetry

import (
	"context"

	"go.trai.ch/parcel/internal/core/ports"
)

var _ ports.Tracer = (*NoOpTracer)(nil)

// NoOpTracer discards every span. Commands that render nothing, such as
// list and info, build their installer with it.
type NoOpTracer struct{}

func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

// Start returns ctx unchanged together with a span that records nothing.
func (t *NoOpTracer) Start(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
	return ctx, discard{}
}

type discard struct{}

func (discard) End()                     {}
func (discard) RecordError(error)        {}
func (discard) SetAttribute(string, any) {}
