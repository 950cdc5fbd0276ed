package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var clearAll bool

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List conversations remembered on this device",
	Long:  `List the session stored for each channel and workspace.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		stored, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(stored) == 0 {
			fmt.Fprintln(out, headerStyle.Render("📋 No stored conversations"))
			return nil
		}

		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 %d stored conversation(s)", len(stored))))
		fmt.Fprintln(out)

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("Channel")+"\t"+titleStyle.Render("Workspace")+"\t"+titleStyle.Render("Session")+"\t"+titleStyle.Render("Saved")+"\t")
		for _, s := range stored {
			saved := dateStyle.Render("-")
			if !s.SavedAt.IsZero() {
				saved = dateStyle.Render(formatWhen(s.SavedAt))
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				s.Channel,
				countStyle.Render(fmt.Sprintf("%d", s.WorkspaceID)),
				idStyle.Render(s.SessionID),
				saved)
		}
		return w.Flush()
	},
}

// sessionsClearCmd represents the sessions clear command
var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget stored conversations",
	Long: `Forget the conversation stored for --channel and --workspace, or every
stored conversation with --all. The next message starts a new session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()
		if !clearAll {
			if err := requireWorkspace(); err != nil {
				return err
			}
			ch, err := selectedChannel()
			if err != nil {
				return err
			}
			if err := store.Clear(ctx, ch.Name, workspaceID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s conversation for workspace %d\n", ch.Name, workspaceID)
			return nil
		}

		stored, err := store.List(ctx)
		if err != nil {
			return err
		}
		for _, s := range stored {
			if err := store.Clear(ctx, s.Channel, s.WorkspaceID); err != nil {
				return err
			}
			internal.LogDebug("Cleared %s", internal.SessionKey(s.Channel, s.WorkspaceID))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot %d conversation(s)\n", len(stored))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	sessionsClearCmd.Flags().BoolVar(&clearAll, "all", false, "Forget every stored conversation")
}
