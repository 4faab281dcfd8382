package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/medguideai/medguide/errors"
)

// MCPServer configures one external tool server reachable over stdio.
type MCPServer struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// Timeout overrides the runtime's per-call tool timeout for this server.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

type mcpConfigFile struct {
	MCPServers map[string]MCPServer `json:"mcpServers"`
}

// LoadMCPServersFromFile reads an mcp_config.json-style file:
//
//	{"mcpServers": {"memory": {"command": "npx", "args": [...]}}}
func LoadMCPServersFromFile(path string) (map[string]MCPServer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read mcp config file %s", path)
	}

	var file mcpConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal mcp config file %s", path)
	}

	for name, server := range file.MCPServers {
		if server.Command == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "mcp server %q has no command", name)
		}
	}

	return file.MCPServers, nil
}
