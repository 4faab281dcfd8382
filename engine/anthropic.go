package engine

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/medguideai/medguide/errors"
)

// AnthropicClient drives chat completions against the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

var (
	_ ModelClient = (*AnthropicClient)(nil)
)

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, req *GenerateRequest, cb StreamCallback) (*GenerateResponse, error) {
	params, err := c.buildMessageParams(req)
	if err != nil {
		return nil, err
	}

	if cb == nil {
		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return nil, errors.Wrapf(err, "anthropic message generation failed")
		}
		return translateMessage(*resp), nil
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, errors.Wrapf(err, "error accumulating message")
		}

		switch event := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := event.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if err := cb(ctx, delta.Text); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrapf(err, "anthropic streaming error")
	}

	return translateMessage(message), nil
}

func (c *AnthropicClient) buildMessageParams(req *GenerateRequest) (anthropic.MessageNewParams, error) {
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	for _, m := range req.Messages {
		var (
			role   anthropic.MessageParamRole
			blocks []anthropic.ContentBlockParamUnion
		)
		switch m.Role {
		case RoleUser:
			role = anthropic.MessageParamRoleUser
			blocks = append(blocks, anthropic.NewTextBlock(m.Content))
		case RoleAssistant:
			role = anthropic.MessageParamRoleAssistant
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				input := tc.Arguments
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
		case RoleTool:
			// Tool results ride in a user-role message.
			role = anthropic.MessageParamRoleUser
			blocks = append(blocks, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		default:
			return anthropic.MessageNewParams{}, errors.Errorf("unsupported message role: %s", m.Role)
		}

		params.Messages = append(params.Messages, anthropic.MessageParam{
			Role:    role,
			Content: blocks,
		})
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Type:       "object",
					Properties: t.InputSchema["properties"],
				},
			},
		})
	}

	return params, nil
}

func translateMessage(resp anthropic.Message) *GenerateResponse {
	out := &GenerateResponse{
		FinishReason: string(resp.StopReason),
	}

	for _, content := range resp.Content {
		switch block := content.AsAny().(type) {
		case anthropic.TextBlock:
			out.Text += block.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: json.RawMessage(block.Input),
			})
		}
	}

	return out
}
