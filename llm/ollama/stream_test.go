package ollama

import (
	"context"
	"errors"
	"testing"

	"github.com/ollama/ollama/api"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

func TestChatStream_DeliversDeltasInOrder(t *testing.T) {
	fake := &fakeAPI{
		chatFn: func(_ context.Context, _ *api.ChatRequest, fn api.ChatResponseFunc) error {
			for _, chunk := range []string{"Hi", " there"} {
				if err := fn(api.ChatResponse{Message: api.Message{Role: "assistant", Content: chunk}}); err != nil {
					return err
				}
			}
			return fn(api.ChatResponse{Done: true})
		},
	}

	stream := newChatStream(context.Background(), fake, &api.ChatRequest{Model: "llama3"})
	got, err := llm.CollectText(stream)
	if err != nil {
		t.Fatalf("CollectText: %v", err)
	}
	if got != "Hi there" {
		t.Errorf("collected %q, want %q", got, "Hi there")
	}
}

func TestChatStream_DeltaThenError(t *testing.T) {
	fake := &fakeAPI{
		chatFn: func(_ context.Context, _ *api.ChatRequest, fn api.ChatResponseFunc) error {
			if err := fn(api.ChatResponse{Message: api.Message{Content: "partial"}}); err != nil {
				return err
			}
			return errors.New("connection reset")
		},
	}

	stream := newChatStream(context.Background(), fake, &api.ChatRequest{Model: "llama3"})
	got, err := llm.CollectText(stream)
	if got != "partial" {
		t.Errorf("text before failure = %q, want %q", got, "partial")
	}
	if llm.KindOf(err) != llm.ErrorKindBackendUnreachable {
		t.Errorf("terminal error = %v, want backend unreachable", err)
	}
}

func TestChatStream_CloseSuppressesCancellation(t *testing.T) {
	started := make(chan struct{})
	fake := &fakeAPI{
		chatFn: func(ctx context.Context, _ *api.ChatRequest, fn api.ChatResponseFunc) error {
			if err := fn(api.ChatResponse{Message: api.Message{Content: "first"}}); err != nil {
				return err
			}
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}

	stream := newChatStream(context.Background(), fake, &api.ChatRequest{Model: "llama3"})
	if !stream.Next() {
		t.Fatal("expected first delta")
	}
	if stream.Delta() != "first" {
		t.Errorf("delta = %q", stream.Delta())
	}

	<-started
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if stream.Next() {
		t.Error("Next returned true after Close")
	}
	if err := stream.Err(); err != nil {
		t.Errorf("abandoned stream reports error: %v", err)
	}
}

func TestChatStream_EmptyChunksAreSkipped(t *testing.T) {
	fake := &fakeAPI{
		chatFn: func(_ context.Context, _ *api.ChatRequest, fn api.ChatResponseFunc) error {
			if err := fn(api.ChatResponse{Message: api.Message{Content: ""}}); err != nil {
				return err
			}
			if err := fn(api.ChatResponse{Message: api.Message{Content: "only"}}); err != nil {
				return err
			}
			return fn(api.ChatResponse{Done: true})
		},
	}

	stream := newChatStream(context.Background(), fake, &api.ChatRequest{Model: "llama3"})
	got, err := llm.CollectText(stream)
	if err != nil {
		t.Fatalf("CollectText: %v", err)
	}
	if got != "only" {
		t.Errorf("collected %q, want %q", got, "only")
	}
}

func TestConvertError_Passthrough(t *testing.T) {
	inner := llm.NewTimeoutError("stalled", nil)
	if got := convertError(inner); !errors.Is(got, error(inner)) {
		t.Errorf("typed error rewrapped: %v", got)
	}

	if llm.KindOf(convertError(errors.New("dial tcp: refused"))) != llm.ErrorKindBackendUnreachable {
		t.Error("transport failure not mapped to backend unreachable")
	}
	if llm.KindOf(convertError(api.StatusError{StatusCode: 502})) != llm.ErrorKindBackendUnreachable {
		t.Error("server error not mapped to backend unreachable")
	}
	if llm.KindOf(convertError(api.StatusError{StatusCode: 404})) != llm.ErrorKindInvalidResponse {
		t.Error("rejection not mapped to invalid response")
	}
	if llm.KindOf(convertError(context.DeadlineExceeded)) != llm.ErrorKindTimeout {
		t.Error("deadline not mapped to timeout")
	}
}
