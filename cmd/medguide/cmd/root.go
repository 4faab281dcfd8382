package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/medguideai/medguide"
	"github.com/medguideai/medguide/config"
	"github.com/medguideai/medguide/internal/mylog"
	"github.com/spf13/cobra"
)

type rootParams struct {
	LogLevel      string
	Model         string
	DataDir       string
	AssistantFile string
	MCPConfigFile string
}

func newRootCmd() *cobra.Command {
	params := &rootParams{}
	cmd := &cobra.Command{
		Use:   "medguide",
		Short: "MedGuide AI, a conversational assistant for medical documents",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Missing .env is fine; keys may come from the environment.
			_ = godotenv.Load()
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&params.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVarP(&params.Model, "model", "m", "", "Chat model as <provider>/<model>, e.g. openai/gpt-4o-mini")
	cmd.PersistentFlags().StringVarP(&params.DataDir, "data-dir", "d", "", "Directory for sqlite databases; empty keeps everything in memory")
	cmd.PersistentFlags().StringVarP(&params.AssistantFile, "assistant", "a", "", "Assistant YAML file")
	cmd.PersistentFlags().StringVar(&params.MCPConfigFile, "mcp-config", "", "MCP servers JSON file")

	cmd.AddCommand(
		newChatCmd(params),
		newIngestCmd(params),
		newServeCmd(params),
	)

	return cmd
}

func newRuntime(ctx context.Context, params *rootParams) (*medguide.Runtime, error) {
	logger := mylog.NewLogger(params.LogLevel, "text")

	options := []medguide.Option{
		medguide.WithLogger(logger),
		medguide.WithOpenAIAPIKey(os.Getenv("OPENAI_API_KEY")),
		medguide.WithAnthropicAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	}

	if params.Model != "" {
		modelConfig := config.NewModelConfig()
		modelConfig.ChatModel = params.Model
		options = append(options, medguide.WithModelConfig(modelConfig))
	}

	if params.DataDir != "" {
		if err := os.MkdirAll(params.DataDir, 0o755); err != nil {
			return nil, err
		}
		ingestConfig := config.NewIngestConfig()
		ingestConfig.SqlitePath = filepath.Join(params.DataDir, "vectors.db")
		sessionConfig := config.NewSessionConfig()
		sessionConfig.SqlitePath = filepath.Join(params.DataDir, "sessions.db")
		memoryConfig := config.NewMemoryConfig()
		memoryConfig.SqliteEnabled = true
		memoryConfig.SqlitePath = filepath.Join(params.DataDir, "memories.db")
		options = append(options,
			medguide.WithIngestConfig(ingestConfig),
			medguide.WithSessionConfig(sessionConfig),
			medguide.WithMemoryConfig(memoryConfig),
		)
	}

	if params.AssistantFile != "" {
		assistant, err := config.LoadAssistantFromFile(params.AssistantFile)
		if err != nil {
			return nil, err
		}
		options = append(options, medguide.WithAssistant(assistant))
	}

	if params.MCPConfigFile != "" {
		servers, err := config.LoadMCPServersFromFile(params.MCPConfigFile)
		if err != nil {
			return nil, err
		}
		options = append(options, medguide.WithMCPServers(servers))
	}

	return medguide.NewRuntime(ctx, options...)
}

func Execute(ctx context.Context) {
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}
