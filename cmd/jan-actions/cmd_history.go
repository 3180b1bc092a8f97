package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/stream"
	"github.com/janhq/jan-actions/internal/infrastructure/cache"
)

var historyCmd = &cobra.Command{
	Use:   "history <action-id>",
	Short: "Print the persisted history of an action",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List actions",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	historyCmd.Flags().String("format", "text", "Output format: text, json, yaml")
	listCmd.Flags().Int("page", 1, "Page to fetch")
	listCmd.Flags().String("format", "text", "Output format: text, json, yaml")
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	return withApplication(cmd, func(ctx context.Context, app *Application) error {
		v := app.manager.View(args[0])
		if err := v.Load(ctx); err != nil {
			return describeError(err)
		}
		history := v.History()
		out := cmd.OutOrStdout()
		if format == "text" {
			printTranscript(out, history)
			return nil
		}
		return encode(out, format, history)
	})
}

func runList(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	page, _ := cmd.Flags().GetInt("page")
	if page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", page)
	}
	return withApplication(cmd, func(ctx context.Context, app *Application) error {
		key := cache.Key(stream.ActionsListKey, strconv.Itoa(page))
		actions, err := cache.FetchAs(ctx, app.queries, key, func(ctx context.Context) ([]message.Action, error) {
			return app.client.ListActions(ctx, page)
		})
		if err != nil {
			return describeError(err)
		}
		out := cmd.OutOrStdout()
		if format == "text" {
			return printActions(out, actions)
		}
		return encode(out, format, actions)
	})
}

func printActions(out io.Writer, actions []message.Action) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tACTIVE\tUPDATED")
	for _, a := range actions {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", a.ID, a.Title, a.Active, a.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func checkFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use text, json or yaml", format)
	}
}

func encode(out io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
