package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/medguideai/medguide/config"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/ingest"
	"github.com/medguideai/medguide/memory"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/xeipuuv/gojsonschema"
)

type (
	Registry interface {
		// Descriptors returns every registered tool in registration order.
		Descriptors() []ToolDescriptor

		// Invoke validates args against the tool's schema and executes it.
		// Invalid arguments fail with ErrToolArgument, execution failures
		// with ErrToolExecution; callers decide whether to surface either to
		// the model or to the user.
		Invoke(ctx context.Context, name string, args json.RawMessage) (string, error)

		Close()
	}

	Options struct {
		Logger      *slog.Logger
		ToolTimeout time.Duration

		// MCPServers are external tool servers to launch and register.
		MCPServers map[string]config.MCPServer

		// Services backing the built-in tools. A nil service skips its tools.
		Documents ingest.Service
		Memory    memory.Service
	}

	registry struct {
		logger      *slog.Logger
		toolTimeout time.Duration

		mtx        sync.Mutex
		tools      map[string]*registeredTool
		names      []string
		mcpClients map[string]mcpclient.MCPClient

		documents ingest.Service
		memory    memory.Service
	}

	registeredTool struct {
		descriptor ToolDescriptor
		schema     *gojsonschema.Schema
		handler    Handler

		// timeout overrides the registry default when positive.
		timeout time.Duration
	}
)

var (
	_ Registry = (*registry)(nil)
)

func NewRegistry(ctx context.Context, opts Options) (Registry, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = 60 * time.Second
	}

	r := &registry{
		logger:      opts.Logger,
		toolTimeout: opts.ToolTimeout,
		tools:       make(map[string]*registeredTool),
		mcpClients:  make(map[string]mcpclient.MCPClient),
		documents:   opts.Documents,
		memory:      opts.Memory,
	}

	if err := r.registerNativeTools(); err != nil {
		r.Close()
		return nil, err
	}
	for serverName, serverConf := range opts.MCPServers {
		if err := r.registerMCPServer(ctx, serverName, serverConf); err != nil {
			r.Close()
			return nil, errors.Wrapf(err, "failed to register MCP server '%s'", serverName)
		}
	}

	return r, nil
}

// register adds a tool under its name. Two tools sharing a name would leave
// the model unable to address one of them, so this is a hard failure.
func (r *registry) register(descriptor ToolDescriptor, handler Handler) error {
	return r.registerWithTimeout(descriptor, handler, 0)
}

// registerWithTimeout registers a tool whose calls get their own timeout in
// place of the registry default. A zero timeout keeps the default.
func (r *registry) registerWithTimeout(descriptor ToolDescriptor, handler Handler, timeout time.Duration) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if descriptor.Name == "" {
		return errors.Wrapf(errors.ErrInvalidConfig, "tool name is empty")
	}
	if _, exists := r.tools[descriptor.Name]; exists {
		return errors.Wrapf(errors.ErrDuplicateToolName, "tool '%s' is already registered", descriptor.Name)
	}

	var schema *gojsonschema.Schema
	if descriptor.InputSchema != nil {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(descriptor.InputSchema))
		if err != nil {
			return errors.Wrapf(err, "invalid input schema for tool '%s'", descriptor.Name)
		}
		schema = compiled
	}

	r.tools[descriptor.Name] = &registeredTool{
		descriptor: descriptor,
		schema:     schema,
		handler:    handler,
		timeout:    timeout,
	}
	r.names = append(r.names, descriptor.Name)
	return nil
}

func (r *registry) Descriptors() []ToolDescriptor {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	descriptors := make([]ToolDescriptor, 0, len(r.names))
	for _, name := range r.names {
		descriptors = append(descriptors, r.tools[name].descriptor)
	}
	return descriptors
}

func (r *registry) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	r.mtx.Lock()
	t, ok := r.tools[name]
	r.mtx.Unlock()
	if !ok {
		return "", errors.Wrapf(errors.ErrToolExecution, "unknown tool '%s'", name)
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if t.schema != nil {
		result, err := t.schema.Validate(gojsonschema.NewBytesLoader(args))
		if err != nil {
			return "", errors.Wrapf(errors.ErrToolArgument, "tool '%s': arguments are not valid JSON: %v", name, err)
		}
		if !result.Valid() {
			return "", errors.Wrapf(errors.ErrToolArgument, "tool '%s': %s", name, formatSchemaErrors(result))
		}
	}

	timeout := r.toolTimeout
	if t.timeout > 0 {
		timeout = t.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	now := time.Now()
	output, err := t.handler(ctx, args)
	if err != nil {
		if errors.Is(err, errors.ErrToolArgument) {
			return "", err
		}
		return "", errors.Wrapf(errors.ErrToolExecution, "tool '%s' failed: %v", name, err)
	}

	r.logger.Debug("Tool call finished", "tool", name, "time", time.Since(now))
	return output, nil
}

func (r *registry) Close() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for serverName, c := range r.mcpClients {
		if err := c.Close(); err != nil {
			r.logger.Warn("failed to close MCP client", "serverName", serverName, "error", err)
		}
	}
	r.mcpClients = make(map[string]mcpclient.MCPClient)
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	msg := ""
	for i, resultError := range result.Errors() {
		if i > 0 {
			msg += "; "
		}
		msg += resultError.String()
	}
	return msg
}
