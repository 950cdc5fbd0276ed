package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
)

var (
	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the store, API and credentials are usable",
	Long: `Check the health of workspace-chat by verifying:
  • Session store can be opened
  • Marketplace API answers
  • Bearer token is present and not expired

This command is useful for debugging configuration issues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()
		fmt.Fprintln(out, sectionStyle.Render("🔍 Workspace Chat Health Check"))
		fmt.Fprintln(out)

		// Step 1: Session store
		fmt.Fprintln(out, infoStyle.Render("Step 1: Opening session store..."))
		storeOK := true
		store, closeStore, err := openStore()
		if err != nil {
			storeOK = false
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to open session store:"), err)
		} else {
			stored, err := store.List(ctx)
			closeStore()
			if err != nil {
				storeOK = false
				fmt.Fprintln(out, errorStyle.Render("❌ Failed to read session store:"), err)
			} else {
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Session store ready (%d stored conversation(s))", len(stored))))
			}
		}
		if healthcheckDetails {
			if ephemeral {
				fmt.Fprintln(out, "   Store: in memory")
			} else {
				fmt.Fprintf(out, "   Store: %s\n", cfg.StorePath)
			}
		}
		fmt.Fprintln(out)

		// Step 2: API
		fmt.Fprintln(out, infoStyle.Render("Step 2: Contacting the API..."))
		apiOK := false
		client, err := newClient()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Invalid API settings:"), err)
		} else {
			start := time.Now()
			status, err := client.Ping(ctx)
			switch {
			case err != nil:
				fmt.Fprintln(out, errorStyle.Render("❌ API unreachable:"), err)
			case status >= 500:
				fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ API answered with status %d", status)))
			default:
				apiOK = true
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ API reachable (status %d)", status)))
			}
			if healthcheckDetails {
				fmt.Fprintf(out, "   URL: %s\n", client.BaseURL())
				fmt.Fprintf(out, "   Round trip: %s\n", time.Since(start).Round(time.Millisecond))
			}
		}
		fmt.Fprintln(out)

		// Step 3: Credentials
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking credentials..."))
		tokenOK := reportToken(out, cfg.Token, time.Now())
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if storeOK && apiOK {
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
			if !tokenOK {
				fmt.Fprintln(out, "   • Chats that need sign-in will fail until a valid token is set")
			}
			return nil
		}
		fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
		if !storeOK {
			fmt.Fprintln(out, "   • Conversations cannot be remembered")
		}
		if !apiOK {
			fmt.Fprintln(out, "   • The marketplace API cannot be reached")
		}
		return fmt.Errorf("health check failed")
	},
}

// reportToken prints what can be told about the bearer token locally
func reportToken(w io.Writer, tok string, now time.Time) bool {
	if tok == "" {
		fmt.Fprintln(w, warningStyle.Render("⚠️  No token configured (anonymous requests only)"))
		return false
	}
	info, err := internal.InspectToken(tok)
	if err != nil {
		fmt.Fprintln(w, successStyle.Render("✅ Token configured (not a JWT, expiry unknown)"))
		return true
	}
	if info.Expired(now) {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("❌ Token expired at %s", info.ExpiresAt.Local().Format(time.RFC3339))))
		return false
	}

	msg := "✅ Token valid"
	if !info.ExpiresAt.IsZero() {
		msg += fmt.Sprintf(" until %s", info.ExpiresAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintln(w, successStyle.Render(msg))
	if healthcheckDetails {
		if info.Subject != "" {
			fmt.Fprintf(w, "   Subject: %s\n", info.Subject)
		}
		if info.Role != "" {
			fmt.Fprintf(w, "   Role: %s\n", info.Role)
		}
	}
	return true
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckDetails, "details", false, "Show detailed diagnostic information")
}
