package backend

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/janhq/jan-actions/internal/domain/stream"
)

// ErrStreamError is returned when the server pushes an "error" event.
var ErrStreamError = errors.New("server reported stream error")

// sseSource implements stream.Source over a text/event-stream body.
type sseSource struct {
	body   io.ReadCloser
	reader *bufio.Reader
	once   sync.Once

	lastID string
}

func newSSESource(body io.ReadCloser) *sseSource {
	return &sseSource{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Recv returns the next message event. Comments, retry hints and named events
// other than "message" and "error" are skipped. io.EOF means the server closed
// the connection; an event cut off by EOF is dropped.
func (s *sseSource) Recv() (stream.Event, error) {
	var (
		eventName string
		data      strings.Builder
		hasData   bool
	)
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return stream.Event{}, io.EOF
			}
			return stream.Event{}, fmt.Errorf("read line: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if !hasData {
				eventName = ""
				continue
			}
			switch eventName {
			case "", "message":
				return stream.Decode([]byte(data.String()))
			case "error":
				return stream.Event{}, s.streamError(data.String())
			}
			eventName = ""
			data.Reset()
			hasData = false
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			eventName = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				s.lastID = value
			}
		}
	}
}

func (s *sseSource) streamError(reason string) error {
	if s.lastID == "" {
		return fmt.Errorf("%w: %s", ErrStreamError, reason)
	}
	return fmt.Errorf("%w after event %s: %s", ErrStreamError, s.lastID, reason)
}

// Close releases the connection. It is safe to call more than once.
func (s *sseSource) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
	})
	return err
}
