package config

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/medguideai/medguide/errors"
)

// AssistantConfig describes one assistant loaded from a YAML file.
type AssistantConfig struct {
	Name   string `yaml:"name"`
	Role   string `yaml:"role"`
	System string `yaml:"system"`

	// Model overrides ModelConfig.ChatModel when set.
	Model string `yaml:"model"`

	// Tools restricts which registered tools the assistant sees.
	// Empty means all.
	Tools []string `yaml:"tools"`

	MCPServers map[string]MCPServer `yaml:"mcpServers"`
}

func LoadAssistantFromFile(file string) (assistant AssistantConfig, err error) {
	var yamlBytes []byte
	if yamlBytes, err = os.ReadFile(file); err != nil {
		err = errors.Wrapf(err, "failed to read file %s", file)
		return
	}

	if err = yaml.Unmarshal(yamlBytes, &assistant); err != nil {
		err = errors.Wrapf(err, "failed to unmarshal file %s", file)
		return
	}

	return
}
