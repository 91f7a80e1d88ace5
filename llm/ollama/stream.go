package ollama

import (
	"context"
	"sync"

	"github.com/ollama/ollama/api"
)

// chatStream adapts the Ollama SDK's callback-based Chat API to the
// pull-based llm.CompletionStream interface. The SDK pushes responses into a
// callback on its own goroutine; the stream buffers the content fragments
// under a mutex and hands them out one Next/Delta cycle at a time.
type chatStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	client apiClient
	req    *api.ChatRequest

	mu      sync.Mutex
	cond    *sync.Cond
	deltas  []string
	current int
	err     error
	done    bool
	closed  bool
	started bool
}

func newChatStream(ctx context.Context, client apiClient, req *api.ChatRequest) *chatStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &chatStream{
		ctx:     ctx,
		cancel:  cancel,
		client:  client,
		req:     req,
		current: -1,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Next blocks until a delta is buffered or the stream terminates. The
// backend request starts lazily on the first call.
func (s *chatStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.started = true
		go s.run()
	}

	s.current++
	for s.current >= len(s.deltas) && !s.done && !s.closed {
		s.cond.Wait()
	}
	return s.current < len(s.deltas)
}

// Delta returns the fragment positioned by the last successful Next.
func (s *chatStream) Delta() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.deltas) {
		return ""
	}
	return s.deltas[s.current]
}

func (s *chatStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels the backend request. Safe to call at any point, including
// mid-stream and more than once.
func (s *chatStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.done = true
	s.mu.Unlock()

	s.cancel()
	s.cond.Broadcast()
	return nil
}

// run drives the backend request on its own goroutine, appending each
// content fragment as it arrives.
func (s *chatStream) run() {
	err := s.client.Chat(s.ctx, s.req, func(resp api.ChatResponse) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.closed {
			return nil
		}
		if resp.Message.Content != "" {
			s.deltas = append(s.deltas, resp.Message.Content)
			s.cond.Broadcast()
		}
		if resp.Done {
			s.done = true
			s.cond.Broadcast()
		}
		return nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	// Cancellation driven by Close is a clean shutdown, not a stream error.
	if err != nil && !s.closed {
		s.err = convertError(err)
	}
	s.done = true
	s.cond.Broadcast()
}
