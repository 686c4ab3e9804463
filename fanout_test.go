package routerx

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestNewFanOutRouterInvalid(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := NewFanOutRouter(n); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("Expected ErrInvalidConfiguration for %d parts, got %v", n, err)
		}
	}
}

func TestFanOutThenReduce(t *testing.T) {
	ctx := context.Background()
	fan, err := NewFanOutRouter(3)
	if err != nil {
		t.Fatalf("NewFanOutRouter failed: %v", err)
	}
	if fan.Kind() != KindMap || fan.Parts() != 3 {
		t.Fatalf("Unexpected fan-out router: kind=%v parts=%d", fan.Kind(), fan.Parts())
	}

	msg := newMessage([]int{1}, "frontend")
	seq, err := fan.Apply(ctx, msg)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	var parts []*Message
	for part := range seq {
		parts = append(parts, part)
	}
	if len(parts) != 3 {
		t.Fatalf("Expected 3 parts, got %d", len(parts))
	}
	if len(msg.Envelope.NumPart) != 1 {
		t.Error("Fan-out must not modify its input")
	}

	for i, part := range parts {
		if part.Envelope.PartID != i+1 {
			t.Errorf("Part %d: expected part id %d, got %d", i, i+1, part.Envelope.PartID)
		}
		if part.Envelope.PendingParts() != 3 {
			t.Errorf("Part %d: expected 3 pending parts, got %d", i, part.Envelope.PendingParts())
		}
		part.Envelope.AddRoute("shard", part.Envelope.Routes[0].StartTime, part.Envelope.Routes[0].EndTime)
		part.Response.Search.TopkResults = []ScoredResult{docResult("doc", float64(i+1), "")}
	}

	topk := mustTopk(t, OpSum, DocKeys())
	current := parts[0].Clone()
	if _, err := topk.Apply(ctx, current, parts...); err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	if len(current.Envelope.NumPart) != 1 || current.Envelope.NumPart[0] != 1 {
		t.Errorf("Expected num_part [1] after fan-in, got %v", current.Envelope.NumPart)
	}
	if got := current.Response.Search.TopkResults[0].Score.Value; got != 6 {
		t.Errorf("Expected merged score 6, got %v", got)
	}
	// Two routes from the clone plus two from each of the three parts.
	if len(current.Envelope.Routes) != 8 {
		t.Errorf("Expected 8 routes, got %d", len(current.Envelope.Routes))
	}
}
