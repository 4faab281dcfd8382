package engine

import (
	"context"
	"encoding/json"

	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/internal/sliceutils"
	"github.com/medguideai/medguide/internal/stringslices"
	"github.com/medguideai/medguide/tool"
)

// maxHistoryMessages bounds how much transcript is replayed to the model.
const maxHistoryMessages = 200

type (
	runState int

	RunRequest struct {
		// History is the persisted transcript of the session, oldest first.
		History []Message `json:"history"`

		// UserMessage is the new message being answered.
		UserMessage string `json:"user_message"`

		// ActiveCollection scopes document search for this run.
		ActiveCollection string `json:"active_collection,omitempty"`
	}

	RunResponse struct {
		Text      string      `json:"text"`
		ToolTrace []ToolTrace `json:"tool_trace,omitempty"`
	}

	// ToolTrace records one executed tool call, including ones the model had
	// to correct after a validation failure.
	ToolTrace struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
		Result    string          `json:"result"`
		IsError   bool            `json:"is_error,omitempty"`
	}
)

const (
	stateAwaitingModel runState = iota
	stateModelResponded
	stateExecutingTools
	stateDone
)

// Run answers one user message. The model is called in rounds: each round
// either produces the final answer or a batch of tool calls whose results are
// fed back into the next round. Tool failures go back to the model as error
// payloads so it can correct itself; only infrastructure errors abort the run.
func (e *Engine) Run(ctx context.Context, req RunRequest, streamCallback StreamCallback) (*RunResponse, error) {
	system, err := e.BuildSystemPrompt()
	if err != nil {
		return nil, err
	}

	messages := sliceutils.Cut(req.History, -maxHistoryMessages, len(req.History))
	messages = append(messages, Message{Role: RoleUser, Content: req.UserMessage})

	var (
		res      RunResponse
		response *GenerateResponse
		rounds   int
		pending  []string
	)

	// Text deltas are buffered per round and only released once the round is
	// known to be the final answer; text a model emits before requesting tool
	// calls must not reach the client.
	var roundCallback StreamCallback
	if streamCallback != nil {
		roundCallback = func(ctx context.Context, text string) error {
			pending = append(pending, text)
			return nil
		}
	}

	state := stateAwaitingModel
	for state != stateDone {
		switch state {
		case stateAwaitingModel:
			if rounds >= e.maxToolRounds {
				return nil, errors.Wrapf(errors.ErrAgentLoopExceeded, "no final answer after %d tool rounds", rounds)
			}
			rounds++

			pending = nil
			response, err = e.generateRound(ctx, &GenerateRequest{
				System:          system,
				Messages:        messages,
				Tools:           e.toolDescriptors(),
				MaxOutputTokens: e.maxOutputTokens,
				Temperature:     e.temperature,
			}, roundCallback)
			if err != nil {
				return nil, err
			}
			state = stateModelResponded

		case stateModelResponded:
			if len(response.ToolCalls) == 0 {
				if streamCallback != nil {
					for _, chunk := range pending {
						if err := streamCallback(ctx, chunk); err != nil {
							return nil, err
						}
					}
				}
				res.Text = response.Text
				state = stateDone
				break
			}
			messages = append(messages, Message{
				Role:      RoleAssistant,
				Content:   response.Text,
				ToolCalls: response.ToolCalls,
			})
			state = stateExecutingTools

		case stateExecutingTools:
			for _, call := range response.ToolCalls {
				result := e.executeToolCall(ctx, call)
				res.ToolTrace = append(res.ToolTrace, result)
				messages = append(messages, Message{
					Role:       RoleTool,
					Content:    result.Result,
					ToolCallID: call.ID,
					ToolName:   call.Name,
					IsError:    result.IsError,
				})
			}
			state = stateAwaitingModel
		}
	}

	return &res, nil
}

func (e *Engine) generateRound(ctx context.Context, req *GenerateRequest, cb StreamCallback) (*GenerateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, e.modelTimeout)
	defer cancel()

	response, err := e.model.Generate(ctx, req, cb)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrapf(errors.ErrModelTimeout, "model did not answer within %s", e.modelTimeout)
		}
		return nil, err
	}
	return response, nil
}

// executeToolCall never fails the run: bad arguments and tool failures are
// serialized into the result payload so the model can see what went wrong and
// try again.
func (e *Engine) executeToolCall(ctx context.Context, call ToolCall) ToolTrace {
	trace := ToolTrace{
		Name:      call.Name,
		Arguments: call.Arguments,
	}

	if e.registry == nil {
		trace.Result = toolErrorPayload(errors.Errorf("no tools are available"))
		trace.IsError = true
		return trace
	}

	output, err := e.registry.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		e.logger.Warn("Tool call failed", "tool", call.Name, "error", err)
		trace.Result = toolErrorPayload(err)
		trace.IsError = true
		return trace
	}

	trace.Result = output
	return trace
}

func (e *Engine) toolDescriptors() []tool.ToolDescriptor {
	if e.registry == nil {
		return nil
	}
	descriptors := e.registry.Descriptors()
	if len(e.allowedTools) == 0 {
		return descriptors
	}
	var allowed []tool.ToolDescriptor
	for _, d := range descriptors {
		if stringslices.ContainsIgnoreCase(e.allowedTools, d.Name) {
			allowed = append(allowed, d)
		}
	}
	return allowed
}

func toolErrorPayload(err error) string {
	payload, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return `{"error": "tool call failed"}`
	}
	return string(payload)
}
