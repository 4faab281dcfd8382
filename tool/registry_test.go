package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/medguideai/medguide/errors"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *registry {
	t.Helper()
	return &registry{
		logger:      slog.Default(),
		toolTimeout: time.Second,
		tools:       make(map[string]*registeredTool),
	}
}

func echoHandler(ctx context.Context, args json.RawMessage) (string, error) {
	return string(args), nil
}

func TestRegisterDuplicateName(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.register(ToolDescriptor{Name: "lookup_drug"}, echoHandler))
	err := r.register(ToolDescriptor{Name: "lookup_drug"}, echoHandler)
	require.ErrorIs(t, err, errors.ErrDuplicateToolName)
}

func TestRegisterEmptyName(t *testing.T) {
	r := newTestRegistry(t)
	require.ErrorIs(t, r.register(ToolDescriptor{}, echoHandler), errors.ErrInvalidConfig)
}

func TestDescriptorsKeepRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t)

	for _, name := range []string{"c_tool", "a_tool", "b_tool"} {
		require.NoError(t, r.register(ToolDescriptor{Name: name}, echoHandler))
	}

	descriptors := r.Descriptors()
	require.Len(t, descriptors, 3)
	require.Equal(t, "c_tool", descriptors[0].Name)
	require.Equal(t, "a_tool", descriptors[1].Name)
	require.Equal(t, "b_tool", descriptors[2].Name)
}

func TestInvokeUnknownTool(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Invoke(context.Background(), "nope", json.RawMessage(`{}`))
	require.ErrorIs(t, err, errors.ErrToolExecution)
}

func TestInvokeValidatesArguments(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.register(ToolDescriptor{
		Name: "lookup_drug",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
			"required": []any{"name"},
		},
	}, echoHandler))

	_, err := r.Invoke(context.Background(), "lookup_drug", json.RawMessage(`{}`))
	require.ErrorIs(t, err, errors.ErrToolArgument)

	_, err = r.Invoke(context.Background(), "lookup_drug", json.RawMessage(`{"name": 42}`))
	require.ErrorIs(t, err, errors.ErrToolArgument)

	out, err := r.Invoke(context.Background(), "lookup_drug", json.RawMessage(`{"name": "aspirin"}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"name": "aspirin"}`, out)
}

func TestInvokeWrapsHandlerFailure(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.register(ToolDescriptor{Name: "flaky"}, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "", errors.New("connection refused")
	}))

	_, err := r.Invoke(context.Background(), "flaky", nil)
	require.ErrorIs(t, err, errors.ErrToolExecution)
	require.Contains(t, err.Error(), "connection refused")
}

func TestInvokeEmptyArgsDefaultToObject(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.register(ToolDescriptor{
		Name:        "no_args",
		InputSchema: map[string]any{"type": "object"},
	}, echoHandler))

	out, err := r.Invoke(context.Background(), "no_args", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, out)
}

func TestInvokeAppliesTimeout(t *testing.T) {
	r := newTestRegistry(t)
	r.toolTimeout = 10 * time.Millisecond
	require.NoError(t, r.register(ToolDescriptor{Name: "slow"}, func(ctx context.Context, args json.RawMessage) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "done", nil
		}
	}))

	_, err := r.Invoke(context.Background(), "slow", nil)
	require.ErrorIs(t, err, errors.ErrToolExecution)
}

func TestInvokePerToolTimeoutOverride(t *testing.T) {
	r := newTestRegistry(t)
	r.toolTimeout = 10 * time.Millisecond

	slowHandler := func(ctx context.Context, args json.RawMessage) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return "done", nil
		}
	}
	require.NoError(t, r.registerWithTimeout(ToolDescriptor{Name: "slow_vectorize"}, slowHandler, time.Second))
	require.NoError(t, r.register(ToolDescriptor{Name: "slow_default"}, slowHandler))

	out, err := r.Invoke(context.Background(), "slow_vectorize", nil)
	require.NoError(t, err)
	require.Equal(t, "done", out)

	_, err = r.Invoke(context.Background(), "slow_default", nil)
	require.ErrorIs(t, err, errors.ErrToolExecution)
}
