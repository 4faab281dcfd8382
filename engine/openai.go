package engine

import (
	"context"

	"github.com/medguideai/medguide/errors"
	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient drives chat completions against the OpenAI API.
type OpenAIClient struct {
	client *goopenai.Client
	model  string
}

var (
	_ ModelClient = (*OpenAIClient)(nil)
)

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		client: goopenai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req *GenerateRequest, cb StreamCallback) (*GenerateResponse, error) {
	params, err := c.convertRequest(req)
	if err != nil {
		return nil, err
	}

	if cb == nil {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, errors.Wrapf(err, "chat completion failed")
		}
		return translateCompletion(resp)
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	acc := goopenai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := cb(ctx, chunk.Choices[0].Delta.Content); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrapf(err, "chat completion stream failed")
	}

	return translateCompletion(&acc.ChatCompletion)
}

func (c *OpenAIClient) convertRequest(req *GenerateRequest) (goopenai.ChatCompletionNewParams, error) {
	var messages []goopenai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, goopenai.SystemMessage(req.System))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleUser:
			messages = append(messages, goopenai.UserMessage(m.Content))
		case RoleAssistant:
			am := goopenai.ChatCompletionAssistantMessageParam{
				Role: goopenai.F(goopenai.ChatCompletionAssistantMessageParamRoleAssistant),
			}
			if m.Content != "" {
				am.Content = goopenai.F([]goopenai.ChatCompletionAssistantMessageParamContentUnion{
					goopenai.TextPart(m.Content),
				})
			}
			if len(m.ToolCalls) > 0 {
				am.ToolCalls = goopenai.F(convertToolCalls(m.ToolCalls))
			}
			messages = append(messages, am)
		case RoleTool:
			messages = append(messages, goopenai.ToolMessage(m.ToolCallID, m.Content))
		default:
			return goopenai.ChatCompletionNewParams{}, errors.Errorf("unknown role %s", m.Role)
		}
	}

	params := goopenai.ChatCompletionNewParams{
		Model:    goopenai.String(c.model),
		Messages: goopenai.F(messages),
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = goopenai.Int(int64(req.MaxOutputTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = goopenai.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		var tools []goopenai.ChatCompletionToolParam
		for _, t := range req.Tools {
			tools = append(tools, goopenai.ChatCompletionToolParam{
				Type: goopenai.F(goopenai.ChatCompletionToolTypeFunction),
				Function: goopenai.F(shared.FunctionDefinitionParam{
					Name:        goopenai.F(t.Name),
					Description: goopenai.F(t.Description),
					Parameters:  goopenai.F(goopenai.FunctionParameters(t.InputSchema)),
					Strict:      goopenai.F(false),
				}),
			})
		}
		params.Tools = goopenai.F(tools)
	}

	return params, nil
}

func convertToolCalls(toolCalls []ToolCall) []goopenai.ChatCompletionMessageToolCallParam {
	var converted []goopenai.ChatCompletionMessageToolCallParam
	for _, tc := range toolCalls {
		args := string(tc.Arguments)
		if args == "" {
			// The API rejects tool calls without an arguments payload.
			args = "{}"
		}
		converted = append(converted, goopenai.ChatCompletionMessageToolCallParam{
			ID:   goopenai.F(tc.ID),
			Type: goopenai.F(goopenai.ChatCompletionMessageToolCallTypeFunction),
			Function: goopenai.F(goopenai.ChatCompletionMessageToolCallFunctionParam{
				Name:      goopenai.F(tc.Name),
				Arguments: goopenai.F(args),
			}),
		})
	}
	return converted
}

func translateCompletion(resp *goopenai.ChatCompletion) (*GenerateResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.Errorf("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	out := &GenerateResponse{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, toolCall := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        toolCall.ID,
			Name:      toolCall.Function.Name,
			Arguments: []byte(toolCall.Function.Arguments),
		})
	}

	return out, nil
}
