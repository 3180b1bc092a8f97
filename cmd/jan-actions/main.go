package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/janhq/jan-actions/internal/infrastructure/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jan-actions",
	Short: "Jan Actions - chat-driven task sessions from the terminal",
	Long: `jan-actions talks to the Jan actions backend.

It creates actions from a first prompt, streams assistant replies as they
are generated, and pins context attachments to outgoing messages.

Examples:
  jan-actions new "book a table for two tonight"
  jan-actions chat 3f2c9a
  jan-actions history 3f2c9a --format yaml
  jan-actions list --page 2
  jan-actions serve`,
	Version:       observability.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schemaCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
}

// withApplication builds the client graph for one command run and tears it down afterwards.
func withApplication(cmd *cobra.Command, fn func(ctx context.Context, app *Application) error) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	ctx := cmd.Context()

	app, err := newApplication(ctx, logLevel)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.log.Error().Err(err).Msg("shutdown")
		}
	}()
	return fn(ctx, app)
}
