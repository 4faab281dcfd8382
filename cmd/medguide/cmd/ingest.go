package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/medguideai/medguide/errors"
	"github.com/spf13/cobra"
)

func newIngestCmd(params *rootParams) *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "ingest <file> [...<file>]",
		Short: "Ingest PDF or text documents into the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			runtime, err := newRuntime(ctx, params)
			if err != nil {
				return err
			}
			defer runtime.Close()

			for _, filename := range args {
				fileBytes, err := os.ReadFile(filename)
				if err != nil {
					return errors.Wrapf(err, "failed to read %s", filename)
				}

				result, err := runtime.IngestFile(ctx, "", fileBytes, filename, collection)
				if err != nil {
					return errors.Wrapf(err, "failed to ingest %s", filename)
				}

				fmt.Printf("%s: %d chunks into collection %q\n", filename, result.NumChunks, result.Collection)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Target collection; empty derives one from each filename")

	return cmd
}
