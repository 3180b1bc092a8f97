package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-actions/internal/domain/message"
)

func TestAttachment_Flatten(t *testing.T) {
	a := message.Attachment{
		ID:   "msg-1",
		Name: "Invoice",
		Type: message.AttachmentEmail,
		Metadata: map[string]any{
			"integrationId": "int-9",
			"messageId":     "gm-42",
		},
	}

	flat := a.Flatten()

	assert.Equal(t, "msg-1", flat["id"])
	assert.Equal(t, "Invoice", flat["name"])
	assert.Equal(t, "email", flat["type"])
	assert.Equal(t, "int-9", flat["integrationId"])
	assert.Equal(t, "gm-42", flat["messageId"])
	assert.Equal(t, a.Metadata, flat["metadata"])
}

func TestAttachment_FlattenMetadataWins(t *testing.T) {
	a := message.Attachment{ID: "n1", Name: "Q1 notes", Type: "note", Metadata: map[string]any{"name": "override"}}

	assert.Equal(t, "override", a.Flatten()["name"])
}

func TestAttachment_FlattenWithoutMetadata(t *testing.T) {
	flat := message.Attachment{ID: "n1", Type: "note"}.Flatten()

	_, ok := flat["metadata"]
	assert.False(t, ok)
	assert.Len(t, flat, 3)
}

func TestMessage_CloneDoesNotShareMetadata(t *testing.T) {
	orig := message.NewUserMessage("hi", []message.Attachment{
		{ID: "n1", Type: "note", Metadata: map[string]any{"k": "v"}},
	})

	cp := orig.Clone()
	cp.Metadata.Context[0].Metadata["k"] = "changed"
	cp.Metadata.Context[0].Name = "renamed"

	require.Len(t, orig.Metadata.Context, 1)
	assert.Equal(t, "v", orig.Metadata.Context[0].Metadata["k"])
	assert.Empty(t, orig.Metadata.Context[0].Name)
}

func TestNewAssistantPlaceholder(t *testing.T) {
	m := message.NewAssistantPlaceholder()

	assert.Equal(t, message.RoleAssistant, m.Role)
	assert.True(t, m.IsStarting)
	assert.Empty(t, m.Content)
	assert.NotEmpty(t, m.ID)
}
