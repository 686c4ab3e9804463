package routerx

import (
	"context"
	"iter"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline applies an ordered list of routers to the same arguments.
type Pipeline struct {
	baseRouter
	routers []Router
	tracer  trace.Tracer
}

// NewPipeline composes routers into a single router. Composition is
// positional: no argument shape checks happen here. A nil stage fails with
// ErrInvalidConfiguration; an empty list is accepted and only fails on Apply.
func NewPipeline(routers []Router, opts ...Option) (*Pipeline, error) {
	for i, r := range routers {
		if r == nil {
			return nil, errors.WithSecondaryError(
				ErrInvalidConfiguration,
				errors.Newf("pipeline stage %d is nil", i),
			)
		}
	}

	o := buildOptions(opts)
	return &Pipeline{
		routers: routers,
		tracer:  o.TracerProvider.Tracer(instrumentationName),
	}, nil
}

// Kind implements Router.
func (p *Pipeline) Kind() Kind { return KindPipeline }

// Routers returns the composed routers.
func (p *Pipeline) Routers() []Router { return p.routers }

// Apply implements Router. Every router receives the same arguments, in
// order. Sequences returned by map-shaped routers are concatenated; the
// result is nil when no router produced one.
func (p *Pipeline) Apply(ctx context.Context, msg *Message, accum ...*Message) (iter.Seq[*Message], error) {
	ctx, span := p.tracer.Start(ctx, "routerx.pipeline",
		trace.WithAttributes(
			attribute.Int("routerx.stage_count", len(p.routers)),
		),
	)
	defer span.End()

	if len(p.routers) == 0 {
		span.RecordError(ErrEmptyPipeline)
		span.SetStatus(codes.Error, "pipeline has no routers")
		return nil, ErrEmptyPipeline
	}

	var seqs []iter.Seq[*Message]
	for i, r := range p.routers {
		seq, err := r.Apply(ctx, msg, accum...)
		if err != nil {
			err = errors.Wrapf(err, "pipeline stage %d (%s)", i, r.Kind())
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline stage failed")
			return nil, err
		}
		if seq != nil {
			seqs = append(seqs, seq)
		}
	}

	if len(seqs) == 0 {
		return nil, nil
	}
	return concat(seqs), nil
}

func concat(seqs []iter.Seq[*Message]) iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for _, seq := range seqs {
			for m := range seq {
				if !yield(m) {
					return
				}
			}
		}
	}
}
