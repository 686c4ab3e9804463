// Package routerx merges partial responses of a fanned-out request back into
// one message, optionally re-scoring and re-ranking the merged results.
package routerx

import (
	"context"
	"iter"
)

// Kind tags the argument shape a router expects.
type Kind int

const (
	// KindBase is the no-op root router.
	KindBase Kind = iota
	// KindMap routers turn one message into a lazy sequence of messages.
	KindMap
	// KindReduce routers merge accumulated messages into the current one.
	KindReduce
	// KindTopkReduce routers additionally aggregate and re-rank scored results.
	KindTopkReduce
	// KindPipeline routers apply a fixed sequence of routers.
	KindPipeline
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindMap:
		return "map"
	case KindReduce:
		return "reduce"
	case KindTopkReduce:
		return "topk_reduce"
	case KindPipeline:
		return "pipeline"
	default:
		return "unknown"
	}
}

// Router transforms or merges messages.
//
// Map-shaped routers are called with a single message and return the
// messages they produce. Reduce-shaped routers are called with the current
// message followed by the accumulated partial messages, mutate the current
// message in place and return a nil sequence.
//
// The set of routers is closed; use MapFunc and KeyFuncs to plug in behavior.
type Router interface {
	// Kind reports the router variant.
	Kind() Kind

	// Apply runs the router on msg.
	Apply(ctx context.Context, msg *Message, accum ...*Message) (iter.Seq[*Message], error)

	// router is a marker method that keeps the variant set closed.
	router()
}

// baseRouter provides the router marker method for all variants.
type baseRouter struct{}

func (baseRouter) router() {}

// Base is a router that does nothing.
type Base struct {
	baseRouter
}

// Kind implements Router.
func (Base) Kind() Kind { return KindBase }

// Apply implements Router. It never touches msg.
func (Base) Apply(context.Context, *Message, ...*Message) (iter.Seq[*Message], error) {
	return nil, nil
}

// MapFunc is a function type that implements a map-shaped Router.
// This allows using a function as a fan-out router, similar to http.HandlerFunc.
type MapFunc func(ctx context.Context, msg *Message) iter.Seq[*Message]

func (MapFunc) router() {}

// Kind implements Router.
func (MapFunc) Kind() Kind { return KindMap }

// Apply implements Router for MapFunc. Accumulated messages are ignored.
func (f MapFunc) Apply(ctx context.Context, msg *Message, _ ...*Message) (iter.Seq[*Message], error) {
	return f(ctx, msg), nil
}
