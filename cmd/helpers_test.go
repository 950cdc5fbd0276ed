package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags puts every flag back to its default so commands do not see
// values left over from an earlier Execute.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// isolateEnv keeps the user's config, .env values and home directory out of
// command tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WORKSPACE_CHAT_API_URL",
		"WORKSPACE_CHAT_TOKEN",
		"WORKSPACE_CHAT_STORE",
		"WORKSPACE_CHAT_POLL_INTERVAL",
		"WORKSPACE_CHAT_REQUEST_TIMEOUT",
		"WORKSPACE_CHAT_CHANGE_DETECTION",
		"WORKSPACE_CHAT_MAX_RESPONSE_BYTES",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
}

// runCLI executes the root command with args and stdin, returning stdout
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.Execute()
	return stdout.String(), err
}

func tempStore(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sessions.db")
}
