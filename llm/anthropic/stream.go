package anthropic

import (
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// messageStream adapts the SDK's SSE event stream to llm.CompletionStream.
// Each Next call pulls events until a text delta or the end of the message.
type messageStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
	delta  string

	mu     sync.Mutex
	err    error
	closed bool
}

func newMessageStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion]) *messageStream {
	return &messageStream{stream: stream}
}

func (s *messageStream) Next() bool {
	s.mu.Lock()
	stop := s.closed || s.err != nil
	s.mu.Unlock()
	if stop {
		return false
	}

	for s.stream.Next() {
		switch event := s.stream.Current().AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := event.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				s.delta = delta.Text
				return true
			}
		case anthropic.MessageStopEvent:
			return false
		}
	}

	if err := s.stream.Err(); err != nil {
		s.mu.Lock()
		if !s.closed {
			s.err = convertError(err)
		}
		s.mu.Unlock()
	}
	return false
}

func (s *messageStream) Delta() string {
	return s.delta
}

func (s *messageStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close terminates the underlying SSE connection. A Next blocked on the
// socket returns once the connection drops.
func (s *messageStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.stream.Close()
}

var _ llm.CompletionStream = (*messageStream)(nil)
