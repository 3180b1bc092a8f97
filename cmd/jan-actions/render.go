package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/stream"
)

// renderer prints streamed assistant text incrementally. Updates carry the
// whole message, so only the unseen suffix is written.
type renderer struct {
	out io.Writer

	mu      sync.Mutex
	printed map[string]int
	status  map[string]string
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{
		out:     out,
		printed: make(map[string]int),
		status:  make(map[string]string),
	}
}

func (r *renderer) update(u stream.Update) {
	m := u.Message
	if m.Role != message.RoleAssistant {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := r.printed[m.ID]
	if m.Status != "" && seen == 0 && r.status[m.ID] != m.Status {
		r.status[m.ID] = m.Status
		fmt.Fprintf(r.out, "... %s\n", m.Status)
	}
	if len(m.Content) > seen {
		if seen == 0 {
			fmt.Fprint(r.out, "jan> ")
		}
		fmt.Fprint(r.out, m.Content[seen:])
		r.printed[m.ID] = len(m.Content)
	}
}

// finish closes the line of the last assistant message and reports a failure.
func (r *renderer) finish(messages []message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != message.RoleAssistant {
			continue
		}
		if r.printed[m.ID] > 0 {
			fmt.Fprintln(r.out)
		}
		if m.Failed {
			fmt.Fprintf(r.out, "error: %s\n", m.Error)
		}
		return
	}
}

func printTranscript(out io.Writer, messages []message.Message) {
	for _, m := range messages {
		switch m.Role {
		case message.RoleUser:
			fmt.Fprintf(out, "you> %s\n", m.Content)
			if len(m.Metadata.Context) > 0 {
				fmt.Fprintf(out, "     [context: %s]\n", describeAttachments(m.Metadata.Context))
			}
		case message.RoleAssistant:
			fmt.Fprintf(out, "jan> %s\n", m.Content)
			if m.Failed {
				fmt.Fprintf(out, "     [failed: %s]\n", m.Error)
			}
		default:
			fmt.Fprintf(out, "%s> %s\n", m.Role, m.Content)
		}
	}
}

func describeAttachments(attachments []message.Attachment) string {
	parts := make([]string, 0, len(attachments))
	for _, a := range attachments {
		label := a.Name
		if label == "" {
			label = a.ID
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", label, a.Type))
	}
	return strings.Join(parts, ", ")
}
