// Package message defines the transcript entities shared by the action chat components.
package message

import (
	"time"

	"github.com/google/uuid"
)

// Role indicates who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"   // persisted history only
	RoleSystem    Role = "system" // persisted history only
)

// Attachment types known to the backend. Other discriminators pass through untouched.
const (
	AttachmentNote  = "note"
	AttachmentEmail = "email"
)

// Attachment references external content pinned to the next outgoing message.
// ID doubles as the de-duplication key.
type Attachment struct {
	ID       string         `json:"id" yaml:"id" jsonschema:"required"`
	Name     string         `json:"name" yaml:"name"`
	Type     string         `json:"type" yaml:"type" jsonschema:"required"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Flatten returns the wire shape of the attachment: its own fields plus every
// metadata entry copied onto the top level. Metadata keys win on collision.
func (a Attachment) Flatten() map[string]any {
	out := make(map[string]any, 4+len(a.Metadata))
	out["id"] = a.ID
	out["name"] = a.Name
	out["type"] = a.Type
	if a.Metadata != nil {
		out["metadata"] = a.Metadata
	}
	for k, v := range a.Metadata {
		out[k] = v
	}
	return out
}

// Clone returns a copy that does not share the metadata map.
func (a Attachment) Clone() Attachment {
	if a.Metadata == nil {
		return a
	}
	md := make(map[string]any, len(a.Metadata))
	for k, v := range a.Metadata {
		md[k] = v
	}
	a.Metadata = md
	return a
}

// Metadata carries per-message extras. Only the context attachments are modelled.
type Metadata struct {
	Context []Attachment `json:"context,omitempty" yaml:"context,omitempty"`
}

// Message is a single transcript entry, either persisted history or a live turn.
type Message struct {
	ID         string    `json:"id" yaml:"id"`
	Role       Role      `json:"role" yaml:"role"`
	Content    string    `json:"content" yaml:"content"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Status     string    `json:"status,omitempty" yaml:"status,omitempty"`
	IsStarting bool      `json:"isStarting,omitempty" yaml:"is_starting,omitempty"`
	Failed     bool      `json:"failed,omitempty" yaml:"failed,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata   Metadata  `json:"metadata" yaml:"metadata"`
}

// NewUserMessage builds a complete user turn carrying the captured attachments.
func NewUserMessage(content string, context []Attachment) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  Metadata{Context: context},
	}
}

// NewAssistantPlaceholder builds the empty in-flight assistant turn.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       RoleAssistant,
		Timestamp:  time.Now().UTC(),
		IsStarting: true,
	}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	if len(m.Metadata.Context) > 0 {
		ctx := make([]Attachment, len(m.Metadata.Context))
		for i, a := range m.Metadata.Context {
			ctx[i] = a.Clone()
		}
		m.Metadata.Context = ctx
	}
	return m
}

// CloneAll deep-copies a slice of messages.
func CloneAll(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}

// Action is a chat-driven task session.
type Action struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updateAt" yaml:"updated_at"`
}
