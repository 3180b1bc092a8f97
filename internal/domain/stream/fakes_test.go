package stream_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/janhq/jan-actions/internal/domain/stream"
)

var errConnReset = errors.New("connection reset by peer")

type recvResult struct {
	ev  stream.Event
	err error
}

// fakeSource delivers scripted events in order.
type fakeSource struct {
	events    chan recvResult
	closed    chan struct{}
	once      sync.Once
	closeHits int
	mu        sync.Mutex
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(chan recvResult, 64),
		closed: make(chan struct{}),
	}
}

func (s *fakeSource) push(ev stream.Event) {
	s.events <- recvResult{ev: ev}
}

func (s *fakeSource) chunk(text string)  { s.push(stream.Event{Kind: stream.KindChunk, Text: text}) }
func (s *fakeSource) status(text string) { s.push(stream.Event{Kind: stream.KindStatus, Text: text}) }
func (s *fakeSource) title(text string)  { s.push(stream.Event{Kind: stream.KindTitle, Text: text}) }
func (s *fakeSource) done()              { s.push(stream.Event{Kind: stream.KindDone}) }

func (s *fakeSource) fail(err error) {
	s.events <- recvResult{err: err}
}

func (s *fakeSource) eof() {
	close(s.events)
}

func (s *fakeSource) Recv() (stream.Event, error) {
	select {
	case r, ok := <-s.events:
		if !ok {
			return stream.Event{}, io.EOF
		}
		return r.ev, r.err
	case <-s.closed:
		return stream.Event{}, errors.New("read on closed body")
	}
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	s.closeHits++
	s.mu.Unlock()
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSource) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeOpener hands out pre-built sources and records requests.
type fakeOpener struct {
	mu       sync.Mutex
	sources  []*fakeSource
	requests []stream.Request
	err      error
	block    chan struct{}
}

func (o *fakeOpener) Open(ctx context.Context, req stream.Request) (stream.Source, error) {
	o.mu.Lock()
	o.requests = append(o.requests, req)
	err := o.err
	block := o.block
	var src *fakeSource
	if err == nil && len(o.sources) > 0 {
		src = o.sources[0]
		o.sources = o.sources[1:]
	}
	o.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if src == nil {
		src = newFakeSource()
	}
	return src, nil
}

func (o *fakeOpener) lastRequest() stream.Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requests[len(o.requests)-1]
}

type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingInvalidator) Invalidate(key string) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
}

func (r *recordingInvalidator) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}
