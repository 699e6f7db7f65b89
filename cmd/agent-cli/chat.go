package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tagus/weather-supervisor/pkg/assistants"
	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
	"github.com/tagus/weather-supervisor/pkg/orchestration"
)

var (
	chatThreadID      string
	chatOrgID         string
	chatCollaborative bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant team",
	Long: `Start an interactive session. Every message the team produces is printed
with its sender as it is produced. Type quit, exit or q to leave.`,
	RunE: runChatCommand,
}

func init() {
	chatCmd.Flags().StringVar(&chatThreadID, "thread", "", "Conversation thread id (defaults to supervisor.thread_id)")
	chatCmd.Flags().StringVar(&chatOrgID, "org", "", "Organization id the thread belongs to")
	chatCmd.Flags().BoolVar(&chatCollaborative, "collaborative", false, "Ask every assistant to prefix finished answers with FINAL ANSWER")
}

func runChatCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	shutdown, err := setupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	out := cmd.OutOrStdout()
	supervisor, cleanup, err := assistants.Build(ctx, cfg, assistants.Options{
		Logger:        logger,
		Observer:      printer(out),
		Collaborative: chatCollaborative,
	})
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	threadID := chatThreadID
	if threadID == "" {
		threadID = cfg.Supervisor.ThreadID
	}
	if chatOrgID != "" {
		ctx = multitenancy.WithOrgID(ctx, chatOrgID)
	}

	return chatLoop(ctx, cmd.InOrStdin(), out, supervisor, threadID)
}

// chatLoop reads user lines until EOF or a quit command and runs a turn for each
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, supervisor *orchestration.Supervisor, threadID string) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "User: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		if _, err := supervisor.Invoke(ctx, threadID, input); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

// printer writes every non-tool message produced by the team, the user echo excluded
func printer(out io.Writer) orchestration.Observer {
	return func(ctx context.Context, event orchestration.Event) {
		msg := event.Message
		if msg.Role == interfaces.MessageRoleTool || msg.Role == interfaces.MessageRoleUser {
			return
		}
		fmt.Fprintln(out, formatMessage(event.Sender, msg))
	}
}

func formatMessage(sender string, msg interfaces.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", sender, msg.Content)
	for _, call := range msg.ToolCalls {
		fmt.Fprintf(&b, "\n  -> %s(%s)", call.Name, call.Arguments)
	}
	return b.String()
}
