package llm

import (
	"encoding/json"
	"unicode/utf8"
)

// Role represents the role of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
// This is backend-neutral; adapters map Role bijectively onto the backend's
// own role tags.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request represents a complete completion request: an ordered sequence of
// messages plus generation parameters. Requests are value types created per
// call; they are never shared or mutated after submission.
type Request struct {
	Messages    []Message `json:"messages"`
	Stop        []string  `json:"stop,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// NewTextRequest creates a single-message request with the given role and text.
func NewTextRequest(role Role, text string) *Request {
	return &Request{
		Messages: []Message{{Role: role, Content: text}},
	}
}

// EstimateTokens returns the documented heuristic token estimate for a
// request: total content characters divided by 4, integer division. Backends
// without a native token-counting endpoint use this instead of failing.
func EstimateTokens(req *Request) int {
	if req == nil {
		return 0
	}
	chars := 0
	for _, msg := range req.Messages {
		chars += utf8.RuneCountInString(msg.Content)
	}
	return chars / 4
}

// ToJSON marshals a request to JSON for debugging/logging purposes.
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
