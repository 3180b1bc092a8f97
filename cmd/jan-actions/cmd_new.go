package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janhq/jan-actions/internal/domain/stream"
	"github.com/janhq/jan-actions/internal/domain/transcript"
	"github.com/janhq/jan-actions/internal/infrastructure/auth"
)

var newCmd = &cobra.Command{
	Use:   "new <prompt>",
	Short: "Create an action and stream the first answer",
	Long:  `Create a new action on the backend, open it and stream the reply to the first prompt.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNew,
}

func runNew(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	return withApplication(cmd, func(ctx context.Context, app *Application) error {
		created, err := app.bootstrap.Initiate(ctx, prompt)
		if err != nil && created == nil {
			return describeError(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "action %s\n", created.ID)
		if err != nil {
			return describeError(err)
		}

		v, err := app.manager.Current()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "you> %s\n", prompt)
		return follow(ctx, v, newRenderer(out))
	})
}

// describeError turns a login failure into an actionable message.
func describeError(err error) error {
	if auth.IsUnauthorized(err) {
		return fmt.Errorf("login required: set ACTIONS_ACCESS_TOKEN (%w)", err)
	}
	return err
}

// follow renders the open stream of v until it terminates.
func follow(ctx context.Context, v *transcript.View, r *renderer) error {
	unsubscribe := v.Subscribe(r.update)
	defer unsubscribe()

	// Updates folded before the subscription are caught up from the snapshot.
	messages := v.Messages()
	if n := len(messages); n > 0 {
		r.update(stream.Update{Message: messages[n-1], State: v.State()})
	}

	if err := v.Wait(ctx); err != nil {
		return err
	}
	r.finish(v.Messages())
	return nil
}
