package tool

import (
	"context"
	"encoding/json"
)

type (
	// ToolDescriptor is the model-facing view of a tool: its name, usage
	// description and JSON Schema for arguments.
	ToolDescriptor struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		InputSchema map[string]any `json:"inputSchema"`
	}

	// Handler executes a tool call with already-validated raw arguments and
	// returns the tool output as text for the model.
	Handler func(ctx context.Context, args json.RawMessage) (string, error)
)
