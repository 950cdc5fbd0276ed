package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var attachSessionID string

// inboxCmd represents the inbox command
var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List customer conversations for a workspace you own",
	Long: `List the customer conversations of a workspace, most recent first.

Use --attach to remember one of them as the owner conversation for the
workspace, so 'chat -c owner' and 'send -c owner' pick it up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireWorkspace(); err != nil {
			return err
		}
		owner, err := internal.LookupChannel(internal.ChannelOwner)
		if err != nil {
			return err
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		if attachSessionID != "" {
			if err := store.Save(ctx, owner.Name, workspaceID, attachSessionID); err != nil {
				return err
			}
			fmt.Fprintf(out, "Attached session %s to workspace %d\n", attachSessionID, workspaceID)
			return nil
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		var sessions []internal.ChatSession
		err = internal.ShowProgress(ctx, fmt.Sprintf("Loading inbox for workspace %d", workspaceID), func() error {
			var listErr error
			sessions, listErr = client.ListSessions(ctx, owner, workspaceID)
			return listErr
		})
		if err != nil {
			return err
		}

		if len(sessions) == 0 {
			fmt.Fprintln(out, headerStyle.Render("📋 No conversations yet"))
			return nil
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt)
		})

		current, _, err := store.Load(ctx, owner.Name, workspaceID)
		if err != nil {
			internal.LogDebug("No attached owner session: %v", err)
		}

		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 %d conversation(s) for workspace %d", len(sessions), workspaceID)))
		fmt.Fprintln(out)

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("Session")+"\t"+titleStyle.Render("Customer")+"\t"+titleStyle.Render("Last activity")+"\t"+titleStyle.Render("Status")+"\t")
		for _, s := range sessions {
			customer := s.CustomerName
			if customer == "" {
				customer = "-"
			}
			status := "open"
			if !s.IsActive {
				status = "closed"
			}
			if s.ID == current {
				status += " *"
			}
			last := dateStyle.Render("-")
			if !s.LastActivityAt.IsZero() {
				last = dateStyle.Render(formatWhen(s.LastActivityAt))
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", idStyle.Render(s.ID), customer, last, status)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, idStyle.Render("💡 Tip: workspace-chat inbox -w "+fmt.Sprint(workspaceID)+" --attach <session>, then chat -c owner"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inboxCmd)
	inboxCmd.Flags().StringVar(&attachSessionID, "attach", "", "Remember this session as the owner conversation")
}
