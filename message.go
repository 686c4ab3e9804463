package routerx

import (
	"slices"
	"time"
)

// Message is the unit of traffic flowing between pipeline stages.
type Message struct {
	// Envelope carries routing metadata.
	Envelope Envelope `json:"envelope"`

	// Response holds the payload produced by upstream stages.
	Response Response `json:"response"`
}

// Envelope is the routing metadata carried alongside a message's payload.
type Envelope struct {
	// RequestID identifies the logical request all partial messages belong to.
	RequestID string `json:"request_id,omitempty"`

	// PartID is the 1-based position of this message within the current fan-out.
	PartID int `json:"part_id,omitempty"`

	// NumPart is a stack of expected part counts; the last element is the
	// number of partial messages expected at the current fan-in level.
	NumPart []int `json:"num_part"`

	// Routes records every stage that touched the message, in order.
	Routes []Route `json:"routes"`
}

// Route identifies a processing stage that handled a message.
type Route struct {
	// Service is the name of the stage.
	Service string `json:"service"`
	// StartTime is when the stage received the message.
	StartTime time.Time `json:"start_time,omitzero"`
	// EndTime is when the stage finished with the message.
	EndTime time.Time `json:"end_time,omitzero"`
}

// Response holds the payload of a message.
type Response struct {
	Search SearchResponse `json:"search"`
}

// SearchResponse is the search part of a response.
type SearchResponse struct {
	// TopkResults is the ordered list of scored results.
	TopkResults []ScoredResult `json:"topk_results"`
}

// ScoredResult is a single scored hit, referring to either a document or a chunk.
type ScoredResult struct {
	Doc   *DocRef   `json:"doc,omitempty"`
	Chunk *ChunkRef `json:"chunk,omitempty"`
	Score Score     `json:"score"`
}

// DocRef references a whole document.
type DocRef struct {
	DocID string `json:"doc_id"`
}

// ChunkRef references one chunk of a document.
type ChunkRef struct {
	DocID  string `json:"doc_id"`
	Offset int    `json:"offset"`
}

// Score is a relevance value together with a trace of how it was derived.
type Score struct {
	Value     float64 `json:"value"`
	Explained string  `json:"explained,omitempty"`
}

// Batch is one reduce call's input as exchanged by the command line tools
// and the serverless handler.
type Batch struct {
	Message     *Message   `json:"message"`
	Accumulated []*Message `json:"accumulated"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}

	out := &Message{
		Envelope: Envelope{
			RequestID: m.Envelope.RequestID,
			PartID:    m.Envelope.PartID,
			NumPart:   slices.Clone(m.Envelope.NumPart),
			Routes:    slices.Clone(m.Envelope.Routes),
		},
	}

	if m.Response.Search.TopkResults != nil {
		out.Response.Search.TopkResults = make([]ScoredResult, len(m.Response.Search.TopkResults))
		for i, r := range m.Response.Search.TopkResults {
			out.Response.Search.TopkResults[i] = r.clone()
		}
	}

	return out
}

func (r ScoredResult) clone() ScoredResult {
	out := ScoredResult{Score: r.Score}
	if r.Doc != nil {
		doc := *r.Doc
		out.Doc = &doc
	}
	if r.Chunk != nil {
		chunk := *r.Chunk
		out.Chunk = &chunk
	}
	return out
}

// AddRoute appends a route record for the named stage.
func (e *Envelope) AddRoute(service string, start, end time.Time) {
	e.Routes = append(e.Routes, Route{Service: service, StartTime: start, EndTime: end})
}

// PendingParts returns the number of partial messages expected at the
// current fan-in level, or 0 if the stack is empty.
func (e *Envelope) PendingParts() int {
	if len(e.NumPart) == 0 {
		return 0
	}
	return e.NumPart[len(e.NumPart)-1]
}
