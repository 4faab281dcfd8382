package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/medguideai/medguide/internal/mylog"
	"github.com/medguideai/medguide/server"
	"github.com/spf13/cobra"
)

func newServeCmd(params *rootParams) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			runtime, err := newRuntime(ctx, params)
			if err != nil {
				return err
			}
			defer runtime.Close()

			logger := mylog.NewLogger(params.LogLevel, "text")
			srv := server.New(runtime, logger, fmt.Sprintf(":%d", port))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3001, "Port to listen on")

	return cmd
}
