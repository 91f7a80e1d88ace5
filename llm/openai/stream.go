package openai

import (
	"errors"
	"io"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// chatStream adapts the SDK's pull-based SSE stream to llm.CompletionStream.
// Each Next call pulls responses until a non-empty content delta or the end
// of the stream.
type chatStream struct {
	stream *openai.ChatCompletionStream
	delta  string

	mu     sync.Mutex
	err    error
	closed bool
}

func newChatStream(stream *openai.ChatCompletionStream) *chatStream {
	return &chatStream{stream: stream}
}

func (s *chatStream) Next() bool {
	s.mu.Lock()
	stop := s.closed || s.err != nil
	s.mu.Unlock()
	if stop {
		return false
	}

	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.err = convertError(err)
			}
			s.mu.Unlock()
			return false
		}

		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.Delta.Content != "" {
			s.delta = choice.Delta.Content
			return true
		}
		if choice.FinishReason != "" {
			return false
		}
	}
}

func (s *chatStream) Delta() string {
	return s.delta
}

func (s *chatStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close terminates the underlying SSE connection. A Next blocked in Recv
// returns once the connection drops.
func (s *chatStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.stream.Close()
}

var _ llm.CompletionStream = (*chatStream)(nil)
