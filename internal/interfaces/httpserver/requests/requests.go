package requests

import "github.com/janhq/jan-actions/internal/domain/message"

// PromptRequest carries a prompt for a new action or a follow-up message.
type PromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// AttachmentRequest pins an attachment to the next outgoing message.
type AttachmentRequest struct {
	ID       string         `json:"id" binding:"required"`
	Name     string         `json:"name"`
	Type     string         `json:"type" binding:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToDomain converts the request into an attachment.
func (r AttachmentRequest) ToDomain() message.Attachment {
	return message.Attachment{
		ID:       r.ID,
		Name:     r.Name,
		Type:     r.Type,
		Metadata: r.Metadata,
	}
}

// ListActionsQuery is the query string of GET /v1/actions.
type ListActionsQuery struct {
	Page int `form:"page,default=1" binding:"min=1"`
}
