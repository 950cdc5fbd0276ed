package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var (
	historySessionID string
	limit            int
	since            string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the messages of a conversation",
	Long: `Fetch and print the full history of the conversation stored for the
workspace, or of the session named with --session.

If the server no longer knows the stored session, it is forgotten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var sinceTime time.Time
		if since != "" {
			t, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			sinceTime = t
		}

		ch, err := selectedChannel()
		if err != nil {
			return err
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()
		sessionID, err := resolveSessionID(ctx, store, ch, historySessionID)
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		var msgs []internal.ChatMessage
		err = internal.ShowProgress(ctx, fmt.Sprintf("Fetching %s session %s", ch.Name, sessionID), func() error {
			var fetchErr error
			msgs, fetchErr = client.History(ctx, ch, sessionID)
			return fetchErr
		})
		if err != nil {
			if internal.IsSessionGone(err) && historySessionID == "" {
				if clearErr := store.Clear(ctx, ch.Name, workspaceID); clearErr != nil {
					internal.LogWarn("Failed to clear stored session: %v", clearErr)
				}
				return fmt.Errorf("conversation %s has ended and was forgotten: %w", sessionID, err)
			}
			return err
		}
		if err := internal.ValidateHistory(msgs); err != nil {
			internal.LogWarn("Session %s history: %v", sessionID, err)
		}

		if !sinceTime.IsZero() {
			filtered := make([]internal.ChatMessage, 0, len(msgs))
			for _, msg := range msgs {
				if !msg.SentAt.Before(sinceTime) {
					filtered = append(filtered, msg)
				}
			}
			msgs = filtered
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, ch, sessionID, len(msgs))

		total := len(msgs)
		if limit > 0 && limit < total {
			msgs = msgs[total-limit:]
			fmt.Fprintln(out, lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d earlier message(s))", total-limit)))
			fmt.Fprintln(out)
		}
		for _, msg := range msgs {
			displayMessage(out, ch, msg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historySessionID, "session", "", "Session id to print instead of the stored one")
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the newest N messages")
	historyCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
}
