package engine

import (
	"log/slog"
	"strings"
	"time"

	"github.com/medguideai/medguide/config"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/tool"
)

type Engine struct {
	logger   *slog.Logger
	model    ModelClient
	registry tool.Registry

	name         string
	role         string
	system       string
	allowedTools []string

	maxToolRounds   int
	modelTimeout    time.Duration
	maxOutputTokens int
	temperature     float64
}

type Options struct {
	Logger   *slog.Logger
	Model    ModelClient
	Registry tool.Registry

	// Assistant persona; Name is required, Role and System refine the
	// rendered instructions.
	Name   string
	Role   string
	System string

	// AllowedTools restricts which registered tools the model sees.
	// Empty means all.
	AllowedTools []string

	MaxToolRounds   int
	ModelTimeout    time.Duration
	MaxOutputTokens int
	Temperature     float64
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Model == nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "model client is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = "MedGuide AI"
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 8
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = 120 * time.Second
	}

	return &Engine{
		logger:          opts.Logger,
		model:           opts.Model,
		registry:        opts.Registry,
		name:            opts.Name,
		role:            opts.Role,
		system:          opts.System,
		allowedTools:    opts.AllowedTools,
		maxToolRounds:   opts.MaxToolRounds,
		modelTimeout:    opts.ModelTimeout,
		maxOutputTokens: opts.MaxOutputTokens,
		temperature:     opts.Temperature,
	}, nil
}

// NewModelClient picks a provider from a "provider/model" name.
func NewModelClient(conf *config.ModelConfig) (ModelClient, error) {
	provider, model, ok := strings.Cut(conf.ChatModel, "/")
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "chat model must be 'provider/model', got %q", conf.ChatModel)
	}

	switch provider {
	case "openai":
		if conf.OpenAIAPIKey == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "OPENAI_API_KEY is required for model %q", conf.ChatModel)
		}
		return NewOpenAIClient(conf.OpenAIAPIKey, model), nil
	case "anthropic":
		if conf.AnthropicAPIKey == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "ANTHROPIC_API_KEY is required for model %q", conf.ChatModel)
		}
		return NewAnthropicClient(conf.AnthropicAPIKey, model), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown model provider %q", provider)
	}
}
