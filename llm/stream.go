package llm

import "strings"

// CompletionStream represents a streaming completion: a lazy, finite-or-error
// terminated sequence of text deltas delivered in backend arrival order.
type CompletionStream interface {
	// Next advances to the next delta in the stream.
	// Returns false when the stream is complete or an error occurs.
	// Once Next has returned false, the stream is terminated and emits
	// nothing further.
	Next() bool

	// Delta returns the current text fragment.
	// Should only be called after Next() returns true.
	Delta() string

	// Err returns the stream's terminal error, or nil if the stream ended
	// (or is still running) normally.
	Err() error

	// Close abandons the stream and releases resources, including any
	// rate-limiter permit held on its behalf.
	Close() error
}

// CollectText drains a stream and returns the concatenated deltas.
// The stream is closed before returning; a terminal error is returned
// alongside whatever text arrived before it.
func CollectText(stream CompletionStream) (string, error) {
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		sb.WriteString(stream.Delta())
	}
	return sb.String(), stream.Err()
}
