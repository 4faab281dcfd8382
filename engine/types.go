package engine

import (
	"context"
	"encoding/json"

	"github.com/medguideai/medguide/tool"
)

type (
	Role string

	// Message is one entry of the model-facing conversation. Assistant
	// messages may carry tool calls; tool messages carry the result of one
	// call, addressed by the call's ID.
	Message struct {
		Role       Role       `json:"role"`
		Content    string     `json:"content,omitempty"`
		ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
		ToolCallID string     `json:"tool_call_id,omitempty"`
		ToolName   string     `json:"tool_name,omitempty"`
		IsError    bool       `json:"is_error,omitempty"`
	}

	ToolCall struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	GenerateRequest struct {
		System          string
		Messages        []Message
		Tools           []tool.ToolDescriptor
		MaxOutputTokens int
		Temperature     float64
	}

	GenerateResponse struct {
		Text         string
		ToolCalls    []ToolCall
		FinishReason string
	}

	// StreamCallback receives text deltas as the model produces them.
	StreamCallback func(ctx context.Context, text string) error

	// ModelClient is one chat completion round against a provider. It does
	// not loop; the engine owns the tool-calling loop.
	ModelClient interface {
		Generate(ctx context.Context, req *GenerateRequest, cb StreamCallback) (*GenerateResponse, error)
	}
)

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)
