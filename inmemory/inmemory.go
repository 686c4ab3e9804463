// Package inmemory provides an in-memory shard that answers one part of a
// fanned-out search with chunk-level scored results.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/routerx"
	"github.com/segmentio/ksuid"
)

// Document is a text document split into chunks.
type Document struct {
	// ID is the unique identifier for the document.
	ID string
	// Chunks are the searchable pieces of the document; a chunk's offset is its index.
	Chunks []string
}

// Shard is an in-memory document store holding one slice of a corpus.
type Shard struct {
	name string
	topK int

	mu        sync.RWMutex
	documents []Document
	idIndex   map[string]int // maps document ID to index in documents slice
}

// New creates a new shard. A topK of 0 or less returns every matching chunk.
// The shard is ready to use and is safe for concurrent operations.
func New(name string, topK int) *Shard {
	return &Shard{
		name:      name,
		topK:      topK,
		documents: make([]Document, 0),
		idIndex:   make(map[string]int),
	}
}

// Name returns the shard name used in routes and explanations.
func (s *Shard) Name() string {
	return s.name
}

// AddDocument adds a document to the shard.
// If a document with the same ID already exists, it will be replaced.
func (s *Shard) AddDocument(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, exists := s.idIndex[doc.ID]; exists {
		s.documents[idx] = doc
	} else {
		s.idIndex[doc.ID] = len(s.documents)
		s.documents = append(s.documents, doc)
	}
}

// AddText stores text under a newly generated ID and returns it. The text is
// chunked on blank lines.
func (s *Shard) AddText(text string) string {
	id := ksuid.New().String()
	s.AddDocument(Document{ID: id, Chunks: splitChunks(text)})
	return id
}

// AddJSON adds a document from JSON of the form {"title": ..., "text": ...}
// or {"chunks": [...]}. A title, when present, becomes chunk 0.
func (s *Shard) AddJSON(id string, jsonData []byte) error {
	var raw struct {
		Title  string   `json:"title"`
		Text   string   `json:"text"`
		Chunks []string `json:"chunks"`
	}
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		return errors.Wrap(err, "failed to unmarshal JSON")
	}

	var chunks []string
	if raw.Title != "" {
		chunks = append(chunks, raw.Title)
	}
	chunks = append(chunks, raw.Chunks...)
	chunks = append(chunks, splitChunks(raw.Text)...)
	if len(chunks) == 0 {
		return errors.Newf("document %s has no text", id)
	}

	s.AddDocument(Document{ID: id, Chunks: chunks})
	return nil
}

// RemoveDocument removes a document by ID.
// Returns true if the document was found and removed.
func (s *Shard) RemoveDocument(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.idIndex[id]
	if !exists {
		return false
	}

	s.documents = append(s.documents[:idx], s.documents[idx+1:]...)

	delete(s.idIndex, id)
	for i := idx; i < len(s.documents); i++ {
		s.idIndex[s.documents[i].ID] = i
	}

	return true
}

// Size returns the number of documents stored in the shard.
func (s *Shard) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Search answers one part of a fanned-out query. It replaces part's results
// with the shard's scored chunks, best first, and records a route for the
// shard.
func (s *Shard) Search(ctx context.Context, part *routerx.Message, query string) error {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "shard %s", s.name)
	}

	terms := strings.Fields(strings.ToLower(query))

	s.mu.RLock()
	var matches []routerx.ScoredResult
	for _, doc := range s.documents {
		for offset, chunk := range doc.Chunks {
			score, matched := scoreChunk(chunk, terms)
			if score == 0 {
				continue
			}
			matches = append(matches, routerx.ScoredResult{
				Chunk: &routerx.ChunkRef{DocID: doc.ID, Offset: offset},
				Score: routerx.Score{
					Value:     score,
					Explained: fmt.Sprintf("%s:%d/%d", s.name, matched, len(terms)),
				},
			})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score.Value > matches[j].Score.Value
	})
	if s.topK > 0 && len(matches) > s.topK {
		matches = matches[:s.topK]
	}

	part.Response.Search.TopkResults = matches
	part.Envelope.AddRoute(s.name, start, time.Now())
	return nil
}

// scoreChunk counts query terms found in the chunk. Matching every term
// boosts the score by half.
func scoreChunk(chunk string, terms []string) (float64, int) {
	if len(terms) == 0 {
		return 1.0, 0
	}

	text := strings.ToLower(chunk)
	matched := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			matched++
		}
	}

	if matched == 0 {
		return 0, 0
	}

	score := float64(matched)
	if matched == len(terms) {
		score *= 1.5
	}
	return score, matched
}

func splitChunks(text string) []string {
	var chunks []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks
}
