package llm

import (
	"context"
	"encoding/json"

	"github.com/aschepis/backscratcher/modelhub/llm/schema"
)

// Tool describes a structured-output contract: the backend must produce a
// single JSON value conforming to the implementing type's declared shape.
type Tool interface {
	// ToolName returns the tool's name as presented to the backend.
	ToolName() string

	// ToolDescription tells the backend when and how to use the tool.
	ToolDescription() string
}

// UseTool generates the JSON schema from T's struct shape, delegates to the
// model's UseAnyTool, and deserializes the result into T. Deserialization
// failure surfaces as a SchemaViolation error.
func UseTool[T Tool](ctx context.Context, model Model, req *Request) (T, error) {
	var out T
	raw, err := model.UseAnyTool(ctx, req, out.ToolName(), out.ToolDescription(), schema.For(out))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, NewSchemaViolationError(out.ToolName(), err)
	}
	return out, nil
}
