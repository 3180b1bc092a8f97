package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/stream"
	"github.com/janhq/jan-actions/internal/domain/transcript"
)

var chatCmd = &cobra.Command{
	Use:   "chat <action-id>",
	Short: "Open an action and chat interactively",
	Long: `Open an existing action, print its history and read prompts from stdin.

Commands:
  /attach <type> <id> [name] [key=value...]  pin an attachment to the next message
  /detach <id>                               unpin an attachment
  /context                                   list pinned attachments
  /refresh                                   reload the persisted history
  /stop                                      request the current answer to stop
  /quit                                      leave the chat`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	actionID := args[0]
	return withApplication(cmd, func(ctx context.Context, app *Application) error {
		if err := app.manager.Navigate(ctx, actionID); err != nil {
			return describeError(err)
		}
		v := app.manager.View(actionID)
		out := cmd.OutOrStdout()
		printTranscript(out, v.Messages())

		r := newRenderer(out)
		defer v.Subscribe(func(u stream.Update) {
			r.update(u)
			if !u.State.IsActive() {
				r.finish(v.Messages())
			}
		})()

		s := &chatSession{view: v, out: out}
		lines := readLines(cmd.InOrStdin())
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return v.Wait(ctx)
				}
				if quit := s.handle(ctx, line); quit {
					return nil
				}
			}
		}
	})
}

func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

type chatSession struct {
	view *transcript.View
	out  io.Writer
}

// handle processes one input line and reports whether the session should end.
func (s *chatSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		s.send(ctx, line)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/attach":
		s.attach(fields[1:])
	case "/detach":
		if len(fields) != 2 {
			fmt.Fprintln(s.out, "usage: /detach <id>")
			return false
		}
		s.view.RemoveContext(fields[1])
		s.listContext()
	case "/context":
		s.listContext()
	case "/refresh":
		if err := s.view.Refetch(ctx); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", describeError(err))
			return false
		}
		printTranscript(s.out, s.view.Messages())
	case "/stop":
		s.view.Stop()
		fmt.Fprintln(s.out, "the backend cannot cancel a running answer; it will finish streaming")
	default:
		fmt.Fprintf(s.out, "unknown command %s\n", fields[0])
	}
	return false
}

func (s *chatSession) send(ctx context.Context, prompt string) {
	if s.view.IsActive() {
		fmt.Fprintln(s.out, "still answering, wait for the current reply")
		return
	}
	if err := s.view.Invoke(ctx, prompt); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", describeError(err))
	}
}

func (s *chatSession) attach(args []string) {
	a, err := parseAttachment(args)
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	if !s.view.AddContext(a) {
		fmt.Fprintf(s.out, "%s is already attached\n", a.ID)
		return
	}
	s.listContext()
}

func (s *chatSession) listContext() {
	pinned := s.view.Contexts()
	if len(pinned) == 0 {
		fmt.Fprintln(s.out, "no context attached")
		return
	}
	fmt.Fprintf(s.out, "context: %s\n", describeAttachments(pinned))
}

// parseAttachment reads "<type> <id> [name words] [key=value...]".
func parseAttachment(args []string) (message.Attachment, error) {
	if len(args) < 2 {
		return message.Attachment{}, fmt.Errorf("usage: /attach <type> <id> [name] [key=value...]")
	}
	a := message.Attachment{Type: args[0], ID: args[1]}
	var name []string
	for _, arg := range args[2:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			name = append(name, arg)
			continue
		}
		if a.Metadata == nil {
			a.Metadata = make(map[string]any)
		}
		a.Metadata[key] = value
	}
	a.Name = strings.Join(name, " ")
	return a, nil
}
