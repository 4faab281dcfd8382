package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/medguideai/medguide/config"
	"github.com/medguideai/medguide/errors"
	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// registerMCPServer launches a stdio tool server, performs the MCP handshake
// and registers every tool the server advertises.
func (r *registry) registerMCPServer(ctx context.Context, serverName string, conf config.MCPServer) error {
	mcpClient, ok := r.mcpClients[serverName]
	if !ok {
		var envs []string
		for key, val := range conf.Env {
			envs = append(envs, fmt.Sprintf("%s=%s", key, val))
		}

		c, err := mcpclient.NewStdioMCPClient(conf.Command, envs, conf.Args...)
		if err != nil {
			return errors.Wrapf(err, "failed to create MCP client")
		}

		if stderr, ok := mcpclient.GetStderr(c); ok {
			go r.relayStderr(serverName, stderr)
		}

		initRequest := mcpgo.InitializeRequest{}
		initRequest.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
		initRequest.Params.ClientInfo = mcpgo.Implementation{
			Name:    "medguide",
			Version: "0.1.0",
		}
		if err := c.Start(ctx); err != nil {
			c.Close()
			return errors.Wrapf(err, "failed to start MCP client")
		}
		if _, err := c.Initialize(ctx, initRequest); err != nil {
			c.Close()
			return errors.Wrapf(err, "failed to initialize MCP client")
		}

		r.mcpClients[serverName] = c
		mcpClient = c
	}

	return r.registerMCPTools(ctx, serverName, conf, mcpClient)
}

func (r *registry) registerMCPTools(ctx context.Context, serverName string, conf config.MCPServer, mcpClient mcpclient.MCPClient) error {
	listToolsResult, err := mcpClient.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return errors.Wrapf(err, "failed to list tools")
	}

	for _, mcpTool := range listToolsResult.Tools {
		schema, err := inputSchemaToMap(mcpTool.InputSchema)
		if err != nil {
			return errors.Wrapf(err, "invalid input schema for tool '%s'", mcpTool.Name)
		}

		toolName := mcpTool.Name
		if err := r.registerWithTimeout(ToolDescriptor{
			Name:        toolName,
			Description: mcpTool.Description,
			InputSchema: schema,
		}, func(ctx context.Context, args json.RawMessage) (string, error) {
			return callMCPTool(ctx, mcpClient, toolName, args)
		}, conf.Timeout); err != nil {
			return err
		}
		r.logger.Debug("Registered MCP tool", "serverName", serverName, "tool", toolName)
	}

	return nil
}

func callMCPTool(ctx context.Context, mcpClient mcpclient.MCPClient, toolName string, args json.RawMessage) (string, error) {
	var arguments map[string]any
	if err := json.Unmarshal(args, &arguments); err != nil {
		return "", errors.Wrapf(errors.ErrToolArgument, "tool '%s': arguments are not a JSON object: %v", toolName, err)
	}

	req := mcpgo.CallToolRequest{
		Request: mcpgo.Request{
			Method: "tools/call",
		},
	}
	req.Params.Name = toolName
	req.Params.Arguments = arguments

	result, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return "", err
	}

	text := toText(result.Content)
	if result.IsError {
		return "", errors.Errorf("%s", text)
	}
	return text, nil
}

func (r *registry) relayStderr(serverName string, stderr io.Reader) {
	rd := bufio.NewReader(stderr)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			if err == io.EOF || strings.Contains(err.Error(), "already closed") {
				return
			}
			r.logger.Error("failed to copy stderr", "err", err, "serverName", serverName)
			return
		}
		r.logger.Warn("[MCP] "+strings.TrimSpace(line), "serverName", serverName)
	}
}

func inputSchemaToMap(schema mcpgo.ToolInputSchema) (map[string]any, error) {
	schemaJson, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(schemaJson, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toText(contents []mcpgo.Content) string {
	text := ""
	for _, c := range contents {
		if t, ok := c.(mcpgo.TextContent); ok {
			text += t.Text
		}
	}

	return strings.TrimSpace(text)
}
