package inmemory

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/routerx"
)

func TestShardDocuments(t *testing.T) {
	shard := New("shard-0", 0)

	if err := shard.AddJSON("1", []byte(`{"title": "Go Programming", "text": "Channels and goroutines.\n\nInterfaces in Go."}`)); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	if err := shard.AddJSON("2", []byte(`{"chunks": ["Python basics"]}`)); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	id := shard.AddText("Rust ownership\n\nBorrow checker")

	if shard.Size() != 3 {
		t.Fatalf("Expected 3 documents, got %d", shard.Size())
	}
	if len(id) != 27 {
		t.Errorf("Expected a ksuid, got %q", id)
	}

	t.Run("ReplaceDocument", func(t *testing.T) {
		shard.AddDocument(Document{ID: "2", Chunks: []string{"Python advanced"}})
		if shard.Size() != 3 {
			t.Errorf("Expected 3 documents after replace, got %d", shard.Size())
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		if err := shard.AddJSON("bad", []byte(`{`)); err == nil {
			t.Error("Expected error for invalid JSON")
		}
		if err := shard.AddJSON("empty", []byte(`{}`)); err == nil {
			t.Error("Expected error for a document without text")
		}
	})

	t.Run("RemoveDocument", func(t *testing.T) {
		if !shard.RemoveDocument("1") {
			t.Error("Expected document 1 to be removed")
		}
		if shard.RemoveDocument("1") {
			t.Error("Expected second removal to report false")
		}
		shard.AddDocument(Document{ID: "3", Chunks: []string{"x"}})
		if !shard.RemoveDocument(id) {
			t.Error("Index should still resolve documents after a removal")
		}
	})
}

func TestShardSearch(t *testing.T) {
	shard := New("shard-1", 2)
	shard.AddDocument(Document{ID: "a", Chunks: []string{"go channels", "go generics and channels", "unrelated"}})
	shard.AddDocument(Document{ID: "b", Chunks: []string{"channels in rust"}})

	part := &routerx.Message{}
	if err := shard.Search(context.Background(), part, "Go channels"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	results := part.Response.Search.TopkResults
	if len(results) != 2 {
		t.Fatalf("Expected 2 results after top-k, got %d", len(results))
	}
	for i, want := range []int{0, 1} {
		if results[i].Chunk.DocID != "a" || results[i].Chunk.Offset != want {
			t.Errorf("Result %d: expected a/%d, got %+v", i, want, results[i].Chunk)
		}
		if results[i].Score.Value != 3 {
			t.Errorf("Result %d: expected score 3, got %v", i, results[i].Score.Value)
		}
	}
	if results[0].Score.Explained != "shard-1:2/2" {
		t.Errorf("Unexpected explanation %q", results[0].Score.Explained)
	}

	routes := part.Envelope.Routes
	if len(routes) != 1 || routes[0].Service != "shard-1" {
		t.Errorf("Expected a shard-1 route, got %+v", routes)
	}
	if routes[0].EndTime.Before(routes[0].StartTime) {
		t.Error("Route end time precedes start time")
	}
}

func TestShardSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New("shard-2", 0).Search(ctx, &routerx.Message{}, "anything")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestFanOutSearchReduce(t *testing.T) {
	ctx := context.Background()

	shards := []*Shard{New("shard-0", 0), New("shard-1", 0), New("shard-2", 0)}
	shards[0].AddDocument(Document{ID: "doc1", Chunks: []string{"merge sort", "quick sort"}})
	shards[1].AddDocument(Document{ID: "doc1", Chunks: []string{"heap sort"}})
	shards[1].AddDocument(Document{ID: "doc2", Chunks: []string{"sort and merge"}})
	shards[2].AddDocument(Document{ID: "doc3", Chunks: []string{"binary search"}})

	fan, err := routerx.NewFanOutRouter(len(shards))
	if err != nil {
		t.Fatalf("NewFanOutRouter failed: %v", err)
	}

	request := &routerx.Message{Envelope: routerx.Envelope{RequestID: "req", NumPart: []int{1}}}
	seq, err := fan.Apply(ctx, request)
	if err != nil {
		t.Fatalf("Fan-out failed: %v", err)
	}

	var parts []*routerx.Message
	for part := range seq {
		if err := shards[part.Envelope.PartID-1].Search(ctx, part, "merge sort"); err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		parts = append(parts, part)
	}

	reducer, err := routerx.NewTopkReduceRouter(routerx.OpSum, routerx.ChunkToDocKeys())
	if err != nil {
		t.Fatalf("NewTopkReduceRouter failed: %v", err)
	}

	merged := parts[0].Clone()
	if _, err := reducer.Apply(ctx, merged, parts...); err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	results := merged.Response.Search.TopkResults
	if len(results) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(results))
	}
	// doc1: 3 + 1 + 1, doc2: 3.
	if results[0].Doc.DocID != "doc1" || results[0].Score.Value != 5 {
		t.Errorf("Expected doc1 with 5, got %+v", results[0])
	}
	if results[1].Doc.DocID != "doc2" || results[1].Score.Value != 3 {
		t.Errorf("Expected doc2 with 3, got %+v", results[1])
	}
	if results[0].Score.Explained != "{shard-0:2/2},{shard-0:1/2},{shard-1:1/2}" {
		t.Errorf("Unexpected explanation %q", results[0].Score.Explained)
	}
	if len(merged.Envelope.NumPart) != 1 {
		t.Errorf("Expected num_part [1], got %v", merged.Envelope.NumPart)
	}
}
