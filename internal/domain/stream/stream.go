// Package stream defines the upstream chunks and downstream events of a streamed answer.
package stream

import "github.com/kailas-cloud/citeflow/internal/domain/source"

// ChunkKind distinguishes answer text from out-of-band notifications.
type ChunkKind string

const (
	// ChunkText carries answer text.
	ChunkText ChunkKind = "text"
	// ChunkToolStart signals that a tool call began.
	ChunkToolStart ChunkKind = "tool_start"
	// ChunkToolResult signals that a tool call finished.
	ChunkToolResult ChunkKind = "tool_result"
)

// Chunk is one item produced by the answer provider.
type Chunk struct {
	Kind     ChunkKind
	Text     string
	Metadata map[string]any
}

// TextChunk creates a text chunk.
func TextChunk(text string) Chunk { return Chunk{Kind: ChunkText, Text: text} }

// EventType is the "type" discriminator of a stream event.
type EventType string

// Event types.
const (
	EventToken      EventType = "token"
	EventToolStart  EventType = "tool_start"
	EventToolResult EventType = "tool_result"
	EventSource     EventType = "source"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is one message sent to the client.
type Event struct {
	Type     EventType      `json:"type"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Source   *source.Source `json:"source,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Token creates a token event.
func Token(content string) Event { return Event{Type: EventToken, Content: content} }

// SourceEvent creates a source event.
func SourceEvent(s source.Source) Event { return Event{Type: EventSource, Source: &s} }

// Done creates the terminal completion event.
func Done() Event { return Event{Type: EventDone} }

// Error creates an error event. msg must be safe to show to clients.
func Error(msg string) Event { return Event{Type: EventError, Error: msg} }

// Passthrough converts a tool notification chunk into its event, keeping metadata untouched.
func Passthrough(c Chunk) (Event, bool) {
	switch c.Kind {
	case ChunkToolStart:
		return Event{Type: EventToolStart, Metadata: c.Metadata}, true
	case ChunkToolResult:
		return Event{Type: EventToolResult, Metadata: c.Metadata}, true
	default:
		return Event{}, false
	}
}
