package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// The API reports rate limits without a machine-readable retry-after in the
// SDK error, so overloaded responses carry this default hint.
const defaultRetryAfter = 60 * time.Second

// convertError maps SDK errors onto the shared error vocabulary.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return llm.NewAuthenticationRequiredError(ProviderName)
		case http.StatusTooManyRequests:
			retryAfter := defaultRetryAfter
			e := llm.NewBackendUnreachableError(fmt.Sprintf("openai rate limited: %s", apiErr.Message), err)
			e.RetryAfter = &retryAfter
			e.StatusCode = apiErr.HTTPStatusCode
			return e
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			e := llm.NewBackendUnreachableError(fmt.Sprintf("openai server error: %s", apiErr.Message), err)
			e.StatusCode = apiErr.HTTPStatusCode
			return e
		default:
			e := llm.NewInvalidResponseError(fmt.Sprintf("openai rejected the request: %s", apiErr.Message), err)
			e.StatusCode = apiErr.HTTPStatusCode
			return e
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError("openai request timed out", err)
	}

	return llm.NewBackendUnreachableError("openai is unreachable", err)
}
