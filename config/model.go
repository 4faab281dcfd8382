package config

import "time"

type ModelConfig struct {
	OpenAIAPIKey    string `json:"-"`
	AnthropicAPIKey string `json:"-"`

	// ChatModel is a "<provider>/<model>" name, e.g. "openai/gpt-4o-mini"
	// or "anthropic/claude-4-sonnet".
	ChatModel string `json:"chatModel,omitempty"`

	// EmbeddingModel is the embedding model name on the OpenAI API.
	EmbeddingModel string `json:"embeddingModel,omitempty"`

	// EmbeddingDimension must match the vector store dimension.
	EmbeddingDimension int `json:"embeddingDimension,omitempty"`

	// MaxToolRounds caps consecutive tool-call rounds within one response.
	// Exceeding it aborts the response with ErrAgentLoopExceeded.
	MaxToolRounds int `json:"maxToolRounds,omitempty"`

	// ModelTimeout bounds a single model call. Deadline expiry surfaces as
	// ErrModelTimeout.
	ModelTimeout time.Duration `json:"modelTimeout,omitempty"`

	// ToolTimeout bounds a single tool invocation. Deadline expiry is fed
	// back to the model as a tool-error result.
	ToolTimeout time.Duration `json:"toolTimeout,omitempty"`

	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

func NewModelConfig() *ModelConfig {
	return &ModelConfig{
		ChatModel:          "openai/gpt-4o-mini",
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: 1536,
		MaxToolRounds:      8,
		ModelTimeout:       120 * time.Second,
		ToolTimeout:        60 * time.Second,
		MaxOutputTokens:    4096,
		Temperature:        0.1,
	}
}
