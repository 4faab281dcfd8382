package engine_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/medguideai/medguide/engine"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/tool"
	"github.com/stretchr/testify/require"
)

// scriptedModel returns its canned responses in order, one per call.
type scriptedModel struct {
	responses []*engine.GenerateResponse
	requests  []*engine.GenerateRequest
	streams   [][]string
}

func (m *scriptedModel) Generate(ctx context.Context, req *engine.GenerateRequest, cb engine.StreamCallback) (*engine.GenerateResponse, error) {
	m.requests = append(m.requests, req)
	if len(m.requests) > len(m.responses) {
		return nil, errors.New("scripted model exhausted")
	}
	call := len(m.requests) - 1
	if cb != nil && call < len(m.streams) {
		for _, chunk := range m.streams[call] {
			if err := cb(ctx, chunk); err != nil {
				return nil, err
			}
		}
	}
	return m.responses[call], nil
}

type slowModel struct{}

func (m *slowModel) Generate(ctx context.Context, req *engine.GenerateRequest, cb engine.StreamCallback) (*engine.GenerateResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Minute):
		return &engine.GenerateResponse{Text: "too late"}, nil
	}
}

// fakeRegistry validates a single required "query" string argument for every
// registered tool name and echoes canned output.
type fakeRegistry struct {
	outputs map[string]string
	calls   []string
}

func (r *fakeRegistry) Descriptors() []tool.ToolDescriptor {
	var descriptors []tool.ToolDescriptor
	for name := range r.outputs {
		descriptors = append(descriptors, tool.ToolDescriptor{Name: name})
	}
	return descriptors
}

func (r *fakeRegistry) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	r.calls = append(r.calls, name)
	output, ok := r.outputs[name]
	if !ok {
		return "", errors.Wrapf(errors.ErrToolExecution, "unknown tool '%s'", name)
	}

	var input struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &input); err != nil || input.Query == "" {
		return "", errors.Wrapf(errors.ErrToolArgument, "tool '%s': query is required", name)
	}
	return output, nil
}

func (r *fakeRegistry) Close() {}

func newTestEngine(t *testing.T, model engine.ModelClient, registry tool.Registry, maxRounds int) *engine.Engine {
	t.Helper()
	e, err := engine.NewEngine(engine.Options{
		Logger:        slog.Default(),
		Model:         model,
		Registry:      registry,
		MaxToolRounds: maxRounds,
		ModelTimeout:  time.Second,
	})
	require.NoError(t, err)
	return e
}

func TestRunDirectAnswer(t *testing.T) {
	model := &scriptedModel{responses: []*engine.GenerateResponse{
		{Text: "Metformin helps control blood sugar.", FinishReason: "stop"},
	}}
	e := newTestEngine(t, model, &fakeRegistry{outputs: map[string]string{"search_documents": "{}"}}, 8)

	res, err := e.Run(context.Background(), engine.RunRequest{UserMessage: "What does metformin do?"}, nil)
	require.NoError(t, err)
	require.Equal(t, "Metformin helps control blood sugar.", res.Text)
	require.Empty(t, res.ToolTrace)
	require.Len(t, model.requests, 1)
}

func TestRunSingleToolRound(t *testing.T) {
	model := &scriptedModel{responses: []*engine.GenerateResponse{
		{ToolCalls: []engine.ToolCall{{
			ID: "call_1", Name: "search_documents", Arguments: json.RawMessage(`{"query": "A1c"}`),
		}}},
		{Text: "Your A1c is 6.8 percent.", FinishReason: "stop"},
	}}
	registry := &fakeRegistry{outputs: map[string]string{"search_documents": `{"results": ["A1c 6.8%"]}`}}
	e := newTestEngine(t, model, registry, 8)

	res, err := e.Run(context.Background(), engine.RunRequest{UserMessage: "What is my A1c?"}, nil)
	require.NoError(t, err)
	require.Equal(t, "Your A1c is 6.8 percent.", res.Text)
	require.Equal(t, []string{"search_documents"}, registry.calls)
	require.Len(t, res.ToolTrace, 1)
	require.Equal(t, "search_documents", res.ToolTrace[0].Name)
	require.False(t, res.ToolTrace[0].IsError)

	// The second round must see the tool result in the transcript.
	secondRound := model.requests[1].Messages
	last := secondRound[len(secondRound)-1]
	require.Equal(t, engine.RoleTool, last.Role)
	require.Equal(t, "call_1", last.ToolCallID)
	require.Contains(t, last.Content, "6.8%")
}

func TestRunSelfCorrectionAfterBadArguments(t *testing.T) {
	model := &scriptedModel{responses: []*engine.GenerateResponse{
		{ToolCalls: []engine.ToolCall{{
			ID: "call_1", Name: "search_documents", Arguments: json.RawMessage(`{}`),
		}}},
		{ToolCalls: []engine.ToolCall{{
			ID: "call_2", Name: "search_documents", Arguments: json.RawMessage(`{"query": "cholesterol"}`),
		}}},
		{Text: "Your LDL is within range.", FinishReason: "stop"},
	}}
	registry := &fakeRegistry{outputs: map[string]string{"search_documents": `{"results": ["LDL 96"]}`}}
	e := newTestEngine(t, model, registry, 8)

	res, err := e.Run(context.Background(), engine.RunRequest{UserMessage: "How is my cholesterol?"}, nil)
	require.NoError(t, err)
	require.Equal(t, "Your LDL is within range.", res.Text)

	// Both attempts are traced; the first carries the validation error.
	require.Len(t, res.ToolTrace, 2)
	require.True(t, res.ToolTrace[0].IsError)
	require.Contains(t, res.ToolTrace[0].Result, "query is required")
	require.False(t, res.ToolTrace[1].IsError)

	// The model saw the error payload as a tool result, not as a crash.
	secondRound := model.requests[1].Messages
	last := secondRound[len(secondRound)-1]
	require.Equal(t, engine.RoleTool, last.Role)
	require.True(t, last.IsError)
	require.Contains(t, last.Content, "query is required")
}

func TestRunToolRoundLimit(t *testing.T) {
	loop := &engine.GenerateResponse{ToolCalls: []engine.ToolCall{{
		ID: "call", Name: "search_documents", Arguments: json.RawMessage(`{"query": "again"}`),
	}}}
	model := &scriptedModel{responses: []*engine.GenerateResponse{loop, loop, loop, loop}}
	registry := &fakeRegistry{outputs: map[string]string{"search_documents": `{}`}}
	e := newTestEngine(t, model, registry, 3)

	_, err := e.Run(context.Background(), engine.RunRequest{UserMessage: "loop forever"}, nil)
	require.ErrorIs(t, err, errors.ErrAgentLoopExceeded)
	require.Len(t, model.requests, 3)
}

func TestRunModelTimeout(t *testing.T) {
	e := newTestEngine(t, &slowModel{}, nil, 8)

	start := time.Now()
	_, err := e.Run(context.Background(), engine.RunRequest{UserMessage: "hello"}, nil)
	require.ErrorIs(t, err, errors.ErrModelTimeout)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestRunStreamsText(t *testing.T) {
	model := &scriptedModel{
		responses: []*engine.GenerateResponse{{Text: "Hello there.", FinishReason: "stop"}},
		streams:   [][]string{{"Hello ", "there."}},
	}
	e := newTestEngine(t, model, nil, 8)

	var streamed strings.Builder
	res, err := e.Run(context.Background(), engine.RunRequest{UserMessage: "hi"}, func(ctx context.Context, text string) error {
		streamed.WriteString(text)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Hello there.", res.Text)
	require.Equal(t, "Hello there.", streamed.String())
}

func TestRunStreamsOnlyFinalAnswer(t *testing.T) {
	model := &scriptedModel{
		responses: []*engine.GenerateResponse{
			{
				Text: "Let me check your records.",
				ToolCalls: []engine.ToolCall{{
					ID: "call_1", Name: "search_documents", Arguments: json.RawMessage(`{"query": "HbA1c"}`),
				}},
			},
			{Text: "Your HbA1c is 6.8%.", FinishReason: "stop"},
		},
		streams: [][]string{
			{"Let me check ", "your records."},
			{"Your HbA1c ", "is 6.8%."},
		},
	}
	registry := &fakeRegistry{outputs: map[string]string{"search_documents": `{"results": []}`}}
	e := newTestEngine(t, model, registry, 8)

	var streamed strings.Builder
	res, err := e.Run(context.Background(), engine.RunRequest{UserMessage: "what is my HbA1c?"}, func(ctx context.Context, text string) error {
		streamed.WriteString(text)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Your HbA1c is 6.8%.", res.Text)
	require.Equal(t, "Your HbA1c is 6.8%.", streamed.String())
}

func TestRunReplaysHistory(t *testing.T) {
	model := &scriptedModel{responses: []*engine.GenerateResponse{
		{Text: "As I said, twice a day.", FinishReason: "stop"},
	}}
	e := newTestEngine(t, model, nil, 8)

	history := []engine.Message{
		{Role: engine.RoleUser, Content: "How often do I take metformin?"},
		{Role: engine.RoleAssistant, Content: "Twice a day with meals."},
	}
	_, err := e.Run(context.Background(), engine.RunRequest{History: history, UserMessage: "Say that again?"}, nil)
	require.NoError(t, err)

	messages := model.requests[0].Messages
	require.Len(t, messages, 3)
	require.Equal(t, "How often do I take metformin?", messages[0].Content)
	require.Equal(t, engine.RoleAssistant, messages[1].Role)
	require.Equal(t, "Say that again?", messages[2].Content)
}
