package anthropic

import (
	"context"
	"errors"
	"net/http"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// Overloaded responses carry this hint when the API gives no explicit
// retry-after.
const defaultRetryAfter = 30 * time.Second

// convertError maps SDK errors onto the shared error vocabulary.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return llm.NewAuthenticationRequiredError(ProviderName)
		case http.StatusTooManyRequests:
			retryAfter := defaultRetryAfter
			e := llm.NewBackendUnreachableError("anthropic rate limited", err)
			e.RetryAfter = &retryAfter
			e.StatusCode = apiErr.StatusCode
			return e
		default:
			if apiErr.StatusCode >= http.StatusInternalServerError {
				e := llm.NewBackendUnreachableError("anthropic server error", err)
				e.StatusCode = apiErr.StatusCode
				return e
			}
			e := llm.NewInvalidResponseError("anthropic rejected the request", err)
			e.StatusCode = apiErr.StatusCode
			return e
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError("anthropic request timed out", err)
	}

	return llm.NewBackendUnreachableError("anthropic is unreachable", err)
}
