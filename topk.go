package routerx

import (
	"cmp"
	"context"
	"iter"
	"math"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TopkReduceRouter aggregates the scored results of accumulated messages per
// key and replaces the current message's results with the re-sorted list.
type TopkReduceRouter struct {
	*ReduceRouter
	op         ReduceOp
	reduce     reduceFunc
	keys       KeyFuncs
	descending bool
	topK       int
}

// NewTopkReduceRouter creates a top-k reduce router. It fails with
// ErrInvalidConfiguration if op is not one of sum, prod, max, min or avg.
// Missing key accessors are only reported when Apply is called.
func NewTopkReduceRouter(op ReduceOp, keys KeyFuncs, opts ...Option) (*TopkReduceRouter, error) {
	reduce, ok := reducers[op]
	if !ok {
		return nil, errors.WithSecondaryError(
			ErrInvalidConfiguration,
			errors.Newf("reduce_op=%q is not acceptable", string(op)),
		)
	}

	o := buildOptions(opts)
	return &TopkReduceRouter{
		ReduceRouter: newReduceRouter(o),
		op:           op,
		reduce:       reduce,
		keys:         keys,
		descending:   o.Descending,
		topK:         o.TopK,
	}, nil
}

// Kind implements Router.
func (r *TopkReduceRouter) Kind() Kind { return KindTopkReduce }

// ReduceOp returns the configured reduce operator.
func (r *TopkReduceRouter) ReduceOp() ReduceOp { return r.op }

// Descending reports whether results are sorted from highest to lowest.
func (r *TopkReduceRouter) Descending() bool { return r.descending }

// scoreGroup collects every value and explanation seen for one key.
type scoreGroup struct {
	key      string
	values   []float64
	explains []string
	reduced  float64
}

// Apply implements Router.
func (r *TopkReduceRouter) Apply(ctx context.Context, msg *Message, accum ...*Message) (iter.Seq[*Message], error) {
	ctx, span := r.tracer.Start(ctx, "routerx.topk_reduce",
		trace.WithAttributes(
			attribute.String("routerx.reduce_op", string(r.op)),
			attribute.Bool("routerx.descending", r.descending),
			attribute.Int("routerx.accumulated_count", len(accum)),
		),
	)
	defer span.End()

	if !r.keys.complete() {
		err := errors.Wrap(ErrUnsupportedOperation, "top-k reduce requires both get and set key accessors")
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing key accessors")
		return nil, err
	}

	groups, err := r.group(accum)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to group scored results")
		return nil, err
	}

	for _, g := range groups {
		g.reduced = r.reduce(g.values)
	}

	slices.SortStableFunc(groups, func(a, b *scoreGroup) int {
		return compareScores(a.reduced, b.reduced, r.descending)
	})

	if r.topK > 0 && len(groups) > r.topK {
		groups = groups[:r.topK]
	}

	results := make([]ScoredResult, 0, len(groups))
	for _, g := range groups {
		res := ScoredResult{
			Score: Score{
				Value:     g.reduced,
				Explained: joinExplains(g.explains),
			},
		}
		if err := r.keys.Set(&res, g.key); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to set result key")
			return nil, err
		}
		results = append(results, res)
	}

	msg.Response.Search.TopkResults = results
	span.SetAttributes(attribute.Int("routerx.result_count", len(results)))

	r.merge(ctx, span, msg, accum)
	return nil, nil
}

// group flattens the results of accum and groups them by key, keeping
// groups in first-seen order.
func (r *TopkReduceRouter) group(accum []*Message) ([]*scoreGroup, error) {
	var groups []*scoreGroup
	index := make(map[string]*scoreGroup)

	for i, m := range accum {
		if m == nil {
			continue
		}
		for j := range m.Response.Search.TopkResults {
			sr := &m.Response.Search.TopkResults[j]
			key, err := r.keys.Get(sr)
			if err != nil {
				return nil, errors.Wrapf(err, "accumulated message %d, result %d", i, j)
			}

			g, ok := index[key]
			if !ok {
				g = &scoreGroup{key: key}
				index[key] = g
				groups = append(groups, g)
			}
			g.values = append(g.values, sr.Score.Value)
			g.explains = append(g.explains, sr.Score.Explained)
		}
	}

	return groups, nil
}

// compareScores orders reduced values in the requested direction. NaN sorts
// after every other value in both directions.
func compareScores(a, b float64, descending bool) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	if descending {
		return cmp.Compare(b, a)
	}
	return cmp.Compare(a, b)
}

// joinExplains renders explanations as "{e1},{e2},...".
func joinExplains(explains []string) string {
	var b strings.Builder
	for i, e := range explains {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		b.WriteString(e)
		b.WriteByte('}')
	}
	return b.String()
}
