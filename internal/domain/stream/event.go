package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/janhq/jan-actions/internal/domain/message"
)

// ErrMalformedEvent is returned when a payload matches none of the known event shapes.
var ErrMalformedEvent = errors.New("malformed stream event")

// Kind discriminates stream events.
type Kind string

const (
	KindChunk  Kind = "chunk"
	KindStatus Kind = "status"
	KindTitle  Kind = "title"
	KindDone   Kind = "done"
)

// Payload is the JSON carried by each server-pushed event.
type Payload struct {
	Chunk  *string `json:"chunk,omitempty" jsonschema:"description=Text to append or the status label when status is true"`
	Status bool    `json:"status,omitempty" jsonschema:"description=Marks chunk as a progress label instead of content"`
	Title  *string `json:"title,omitempty" jsonschema:"description=Derived conversation title"`
	Done   bool    `json:"done,omitempty" jsonschema:"description=Terminates the stream"`
}

// Event is one decoded stream event.
type Event struct {
	Kind Kind
	Text string
}

// Decode classifies one payload. Precedence is done, status, title, chunk.
func Decode(data []byte) (Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, fmt.Errorf("%w: not a JSON object", ErrMalformedEvent)
	}

	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch {
	case p.Done:
		return Event{Kind: KindDone}, nil
	case p.Status:
		if p.Chunk == nil {
			return Event{}, fmt.Errorf("%w: status without text", ErrMalformedEvent)
		}
		return Event{Kind: KindStatus, Text: *p.Chunk}, nil
	case p.Title != nil:
		return Event{Kind: KindTitle, Text: *p.Title}, nil
	case p.Chunk != nil:
		return Event{Kind: KindChunk, Text: *p.Chunk}, nil
	default:
		return Event{}, fmt.Errorf("%w: unknown shape", ErrMalformedEvent)
	}
}

// Encode renders the event back to its wire payload.
func (e Event) Encode() ([]byte, error) {
	var p Payload
	switch e.Kind {
	case KindDone:
		p.Done = true
	case KindStatus:
		p.Status = true
		p.Chunk = &e.Text
	case KindTitle:
		p.Title = &e.Text
	case KindChunk:
		p.Chunk = &e.Text
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return json.Marshal(p)
}

// EncodeContext serializes attachments for the stream request: a JSON array of
// flattened attachment objects.
func EncodeContext(attachments []message.Attachment) (string, error) {
	flat := make([]map[string]any, 0, len(attachments))
	for _, a := range attachments {
		flat = append(flat, a.Flatten())
	}
	data, err := json.Marshal(flat)
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	return string(data), nil
}
