package routerx

import (
	"context"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/letmevibethatforyou/routerx"

// ReduceRouter merges route metadata of accumulated messages into the
// current message and completes one fan-in level.
type ReduceRouter struct {
	baseRouter
	logger     *slog.Logger
	tracer     trace.Tracer
	mismatches metric.Int64Counter
}

// NewReduceRouter creates a reduce router.
func NewReduceRouter(opts ...Option) *ReduceRouter {
	return newReduceRouter(buildOptions(opts))
}

func newReduceRouter(o *Options) *ReduceRouter {
	meter := o.MeterProvider.Meter(instrumentationName)
	mismatches, err := meter.Int64Counter("routerx.fan_in_mismatch",
		metric.WithDescription("Reduces that found no fan-in level left to complete"),
	)
	if err != nil {
		// The API hands back a usable no-op instrument alongside the error.
		o.Logger.Warn("failed to create fan-in mismatch counter", "error", err)
	}

	return &ReduceRouter{
		logger:     o.Logger,
		tracer:     o.TracerProvider.Tracer(instrumentationName),
		mismatches: mismatches,
	}
}

// Kind implements Router.
func (r *ReduceRouter) Kind() Kind { return KindReduce }

// Apply implements Router.
func (r *ReduceRouter) Apply(ctx context.Context, msg *Message, accum ...*Message) (iter.Seq[*Message], error) {
	ctx, span := r.tracer.Start(ctx, "routerx.reduce",
		trace.WithAttributes(
			attribute.Int("routerx.accumulated_count", len(accum)),
		),
	)
	defer span.End()

	r.merge(ctx, span, msg, accum)
	return nil, nil
}

// merge folds routes of accum into msg and pops one num_part level.
// It is the only place num_part is ever popped.
func (r *ReduceRouter) merge(ctx context.Context, span trace.Span, msg *Message, accum []*Message) {
	for _, m := range accum {
		if m == nil {
			continue
		}
		msg.Envelope.Routes = append(msg.Envelope.Routes, m.Envelope.Routes...)
	}

	if n := len(msg.Envelope.NumPart); n > 1 {
		msg.Envelope.NumPart = msg.Envelope.NumPart[:n-1]
		span.SetAttributes(attribute.Int("routerx.num_part_depth", n-1))
		return
	}

	span.AddEvent("fan_in_mismatch", trace.WithAttributes(
		attribute.IntSlice("routerx.num_part", msg.Envelope.NumPart),
		attribute.String("routerx.request_id", msg.Envelope.RequestID),
	))
	span.RecordError(ErrFanInMismatch)
	if r.mismatches != nil {
		r.mismatches.Add(ctx, 1)
	}
	r.logger.WarnContext(ctx, "num_part says no further reducing is expected; merging anyway",
		"error", ErrFanInMismatch,
		"num_part", msg.Envelope.NumPart,
		"request_id", msg.Envelope.RequestID,
	)
}
