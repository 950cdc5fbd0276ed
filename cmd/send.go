package cmd

import (
	"fmt"
	"strings"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var sendSessionID string

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message and exit",
	Long: `Send a single message on the selected channel.

When no conversation is stored for the workspace, the message starts one
and the new session is remembered. Owners must name the session with
--session.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireWorkspace(); err != nil {
			return err
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

		client, err := newClient()
		if err != nil {
			return err
		}

		conv, err := internal.NewConversation(internal.ConversationOptions{
			Channel:      ch,
			WorkspaceID:  workspaceID,
			API:          client,
			Store:        store,
			Detector:     newDetector(),
			Notifier:     internal.NewTerminalNotifier(cmd.ErrOrStderr()),
			PollInterval: cfg.PollInterval,
		})
		if err != nil {
			return err
		}
		defer conv.Close()

		ctx := cmd.Context()
		if err := conv.Open(ctx); err != nil {
			return err
		}
		if sendSessionID != "" {
			if err := conv.Attach(ctx, sendSessionID); err != nil {
				return err
			}
		}

		if err := conv.Submit(ctx, strings.Join(args, " ")); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		msgs := conv.Messages()
		fmt.Fprintf(out, "Sent to session %s (%d message(s))\n", conv.SessionID(), len(msgs))
		if n := len(msgs); n > 0 {
			displayMessage(out, ch, msgs[n-1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendSessionID, "session", "", "Send to this session id instead of the stored one")
}
