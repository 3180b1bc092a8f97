package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/janhq/jan-actions/internal/interfaces/httpserver"
	"github.com/janhq/jan-actions/internal/interfaces/httpserver/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP bridge",
	Long:  `Expose actions, transcripts and pinned context over HTTP, re-streaming replies as server-sent events.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApplication(cmd, func(ctx context.Context, app *Application) error {
		handlerProvider := handlers.NewProvider(app.bootstrap, app.client, app.manager, app.contexts, app.queries, app.log)
		server := httpserver.New(app.cfg, app.log, handlerProvider)
		if err := server.Run(ctx); err != nil {
			return err
		}
		app.log.Info().Msg("application exited cleanly")
		return nil
	})
}
