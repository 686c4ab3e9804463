package routerx

import (
	"context"
	"iter"

	"github.com/cockroachdb/errors"
)

// FanOutRouter splits one message into a fixed number of partial messages.
type FanOutRouter struct {
	baseRouter
	parts int
}

// NewFanOutRouter creates a router that emits parts copies of each message.
func NewFanOutRouter(parts int) (*FanOutRouter, error) {
	if parts < 1 {
		return nil, errors.WithSecondaryError(
			ErrInvalidConfiguration,
			errors.Newf("fan-out needs at least one part, got %d", parts),
		)
	}
	return &FanOutRouter{parts: parts}, nil
}

// Kind implements Router.
func (r *FanOutRouter) Kind() Kind { return KindMap }

// Parts returns the number of messages produced per input.
func (r *FanOutRouter) Parts() int { return r.parts }

// Apply implements Router. Each yielded message is a deep copy of msg with
// PartID set to its position and the part count pushed onto NumPart, so the
// matching reduce can pop it. msg itself is not modified.
func (r *FanOutRouter) Apply(_ context.Context, msg *Message, _ ...*Message) (iter.Seq[*Message], error) {
	return func(yield func(*Message) bool) {
		for i := 1; i <= r.parts; i++ {
			part := msg.Clone()
			part.Envelope.PartID = i
			part.Envelope.NumPart = append(part.Envelope.NumPart, r.parts)
			if !yield(part) {
				return
			}
		}
	}, nil
}
