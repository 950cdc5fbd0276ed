package cmd

import (
	"fmt"
	"os"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	apiURL      string
	token       string
	storePath   string
	configPath  string
	ephemeral   bool
	channelName string
	workspaceID int64
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"

	cfg *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "workspace-chat",
	Short: "Chat with workspace hosts, owners and the booking assistant",
	Long: `A terminal client for the workspace-booking marketplace chat.

Three channels share one session model:
  • customer  talk to the host of a workspace
  • owner     answer customers from the owner inbox
  • ai        ask the booking assistant

Each workspace remembers its conversation per channel on this device, so
reopening a chat resumes where you left off.

Quick Start:
  workspace-chat chat -w 42                 # Chat with the host of workspace 42
  workspace-chat chat -w 42 -c ai           # Ask the assistant about workspace 42
  workspace-chat inbox -w 42                # Owner: list conversations
  workspace-chat history -w 42 -c customer  # Print the stored conversation
  workspace-chat export -w 42 --format md   # Export it as Markdown`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)
		return loadSettings(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		internal.SyncLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings resolves the config file, .env and environment, then lets
// explicitly set flags win.
func loadSettings(cmd *cobra.Command) error {
	loaded, err := internal.LoadConfig(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("api") {
		loaded.APIURL = apiURL
	}
	if flags.Changed("token") {
		loaded.Token = token
	}
	if flags.Changed("store") {
		loaded.StorePath = storePath
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	internal.LogDebug("API %s, store %s, detector %s", loaded.APIURL, loaded.StorePath, loaded.ChangeDetection)
	cfg = loaded
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Marketplace API base URL (env WORKSPACE_CHAT_API_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token (env WORKSPACE_CHAT_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Session store database file (env WORKSPACE_CHAT_STORE)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.workspace-chat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep sessions in memory only; nothing is remembered after exit")
	rootCmd.PersistentFlags().StringVarP(&channelName, "channel", "c", internal.ChannelCustomer, "Chat channel (customer, owner, ai)")
	rootCmd.PersistentFlags().Int64VarP(&workspaceID, "workspace", "w", 0, "Workspace id the conversation belongs to")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
