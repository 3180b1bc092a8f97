package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/status"
	"github.com/janhq/jan-actions/internal/domain/stream"
)

func TestParseAttachment(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    message.Attachment
		wantErr bool
	}{
		{
			name: "type and id",
			args: []string{"note", "n1"},
			want: message.Attachment{Type: "note", ID: "n1"},
		},
		{
			name: "name and metadata",
			args: []string{"email", "e1", "Quarterly", "report", "from=ana@example.com"},
			want: message.Attachment{
				Type:     "email",
				ID:       "e1",
				Name:     "Quarterly report",
				Metadata: map[string]any{"from": "ana@example.com"},
			},
		},
		{
			name:    "missing id",
			args:    []string{"note"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAttachment(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_PrintsOnlyNewText(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)
	msg := message.NewAssistantPlaceholder()

	r.update(stream.Update{Message: msg, State: status.StatusActive})
	msg.Status = "Searching"
	r.update(stream.Update{Message: msg, State: status.StatusActive})
	msg.Content = "Hel"
	r.update(stream.Update{Message: msg, State: status.StatusActive})
	msg.Content = "Hello"
	r.update(stream.Update{Message: msg, State: status.StatusActive})
	r.update(stream.Update{Message: msg, State: status.StatusActive})
	r.update(stream.Update{Message: message.NewUserMessage("ignored", nil), State: status.StatusActive})
	r.finish([]message.Message{msg})

	assert.Equal(t, "... Searching\njan> Hello\n", out.String())
}

func TestRenderer_ReportsFailure(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)
	msg := message.NewAssistantPlaceholder()
	msg.Failed = true
	msg.Error = "connection lost"

	r.finish([]message.Message{msg})

	assert.Equal(t, "error: connection lost\n", out.String())
}

func TestPrintTranscript(t *testing.T) {
	var out bytes.Buffer
	user := message.NewUserMessage("summarize", []message.Attachment{{ID: "e1", Name: "Invoice", Type: "email"}})
	reply := message.Message{Role: message.RoleAssistant, Content: "Done."}

	printTranscript(&out, []message.Message{user, reply})

	assert.Equal(t, "you> summarize\n     [context: Invoice (email)]\njan> Done.\n", out.String())
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("yaml"))
	assert.NoError(t, checkFormat("json"))
	assert.Error(t, checkFormat("xml"))
}

func TestEncodeYAML(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, encode(&out, "yaml", []message.Action{{ID: "a1", Title: "Trip"}}))

	assert.Contains(t, out.String(), "id: a1")
	assert.Contains(t, out.String(), "title: Trip")
}

func TestBuildSchemas(t *testing.T) {
	schemas := buildSchemas()

	require.Contains(t, schemas, "payload")
	require.Contains(t, schemas, "attachment")

	raw, err := json.Marshal(schemas["attachment"])
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.ElementsMatch(t, []any{"id", "type"}, doc["required"])

	raw, err = json.Marshal(schemas["payload"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"chunk"`)
	assert.Contains(t, string(raw), "Terminates the stream")
}
