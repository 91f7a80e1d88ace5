package ollama

import (
	"context"
	"errors"
	"net/http"

	"github.com/ollama/ollama/api"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// convertError maps SDK and transport failures onto the shared error
// vocabulary. Errors already carrying a kind (stall timeouts injected by the
// transport layer) pass through unchanged.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode >= http.StatusInternalServerError:
			return llm.NewBackendUnreachableError("ollama server error", err)
		default:
			return llm.NewInvalidResponseError("ollama rejected the request", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError("ollama request timed out", err)
	}

	// Anything else is a transport-level failure: connection refused, DNS,
	// dropped socket.
	return llm.NewBackendUnreachableError("ollama is unreachable", err)
}
