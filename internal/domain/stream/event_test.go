package stream_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/stream"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data string
		want stream.Event
	}{
		{"chunk", `{"chunk":"Hello"}`, stream.Event{Kind: stream.KindChunk, Text: "Hello"}},
		{"empty chunk", `{"chunk":""}`, stream.Event{Kind: stream.KindChunk, Text: ""}},
		{"status", `{"chunk":"Reading emails","status":true}`, stream.Event{Kind: stream.KindStatus, Text: "Reading emails"}},
		{"title", `{"title":"Inbox summary"}`, stream.Event{Kind: stream.KindTitle, Text: "Inbox summary"}},
		{"done", `{"done":true}`, stream.Event{Kind: stream.KindDone}},
		{"done wins over chunk", `{"done":true,"chunk":"tail"}`, stream.Event{Kind: stream.KindDone}},
		{"status wins over title", `{"status":true,"chunk":"x","title":"t"}`, stream.Event{Kind: stream.KindStatus, Text: "x"}},
		{"title wins over chunk", `{"title":"t","chunk":"x"}`, stream.Event{Kind: stream.KindTitle, Text: "t"}},
		{"status false is a chunk", `{"chunk":"x","status":false}`, stream.Event{Kind: stream.KindChunk, Text: "x"}},
		{"surrounding whitespace", "  {\"chunk\":\"a\"}\n", stream.Event{Kind: stream.KindChunk, Text: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stream.Decode([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, data := range []string{
		``,
		`not json`,
		`[1,2]`,
		`"chunk"`,
		`{}`,
		`{"status":true}`,
		`{"chunk":`,
		`{"done":"yes"}`,
	} {
		_, err := stream.Decode([]byte(data))
		assert.ErrorIs(t, err, stream.ErrMalformedEvent, "payload %q", data)
	}
}

func TestEventEncode_DecodesToSameEvent(t *testing.T) {
	for _, ev := range []stream.Event{
		{Kind: stream.KindChunk, Text: "a b"},
		{Kind: stream.KindStatus, Text: "thinking"},
		{Kind: stream.KindTitle, Text: "Plan"},
		{Kind: stream.KindDone},
	} {
		data, err := ev.Encode()
		require.NoError(t, err)
		got, err := stream.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}

	_, err := stream.Event{Kind: "bogus"}.Encode()
	assert.Error(t, err)
}

func TestEncodeContext(t *testing.T) {
	encoded, err := stream.EncodeContext([]message.Attachment{
		{ID: "n1", Name: "Q1", Type: message.AttachmentNote, Metadata: map[string]any{"pinned": true}},
		{ID: "e7", Name: "Re: budget", Type: message.AttachmentEmail},
	})
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(encoded), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "n1", got[0]["id"])
	assert.Equal(t, true, got[0]["pinned"])
	assert.Equal(t, "email", got[1]["type"])
}

func TestEncodeContext_Empty(t *testing.T) {
	encoded, err := stream.EncodeContext(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", encoded)
}
