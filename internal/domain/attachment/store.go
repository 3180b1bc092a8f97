// Package attachment holds the pending context attachments for the next outgoing message.
package attachment

import (
	"sync"

	"github.com/janhq/jan-actions/internal/domain/message"
)

// Store tracks zero or more pending attachments, at most one per ID.
type Store struct {
	mu       sync.Mutex
	contexts []message.Attachment
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends the attachment unless one with the same ID is already pinned.
// It reports whether the store changed.
func (s *Store) Add(a message.Attachment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.contexts {
		if existing.ID == a.ID {
			return false
		}
	}
	s.contexts = append(s.contexts, a.Clone())
	return true
}

// Remove drops the attachment with the given ID, if present.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.contexts {
		if existing.ID == id {
			s.contexts = append(s.contexts[:i:i], s.contexts[i+1:]...)
			return
		}
	}
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.contexts = nil
	s.mu.Unlock()
}

// Contexts returns the pinned attachments in insertion order.
func (s *Store) Contexts() []message.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.contexts)
}

// Len returns the number of pinned attachments.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

// Drain returns the pinned attachments and empties the store in one step.
func (s *Store) Drain() []message.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.contexts
	s.contexts = nil
	if out == nil {
		return []message.Attachment{}
	}
	return out
}

func cloneAll(in []message.Attachment) []message.Attachment {
	out := make([]message.Attachment, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
