package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/medguideai/medguide/errors"
	"github.com/spf13/cobra"
)

func newChatCmd(params *rootParams) *cobra.Command {
	var sessionId string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant on the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			runtime, err := newRuntime(ctx, params)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if sessionId == "" {
				sessionId = uuid.NewString()
			}

			fmt.Println("MedGuide AI. Ask about your medical documents; type 'exit' or 'quit' to leave.")
			fmt.Printf("session: %s\n\n", sessionId)

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for {
				fmt.Print("you> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				fmt.Print("medguide> ")
				_, err := runtime.Respond(ctx, sessionId, line, func(ctx context.Context, text string) error {
					fmt.Print(text)
					return nil
				})
				fmt.Println()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				}
				fmt.Println()
			}

			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&sessionId, "session", "s", "", "Session ID to resume; empty starts a new session")

	return cmd
}
