package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/cuongvd6868/workspace-chat/internal/export"
	"github.com/spf13/cobra"
)

var (
	format          string
	outputDir       string
	exportSessionID string
	exportAll       bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export conversations to file",
	Long: `Export conversations to various formats (jsonl, md, yaml, json).

By default the conversation stored for --channel and --workspace is
exported. Use --session to export a specific session, or --all to export
every conversation remembered on this device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()
		targets, err := exportTargets(ctx, store)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			internal.PrintInfo("No stored conversations to export")
			return nil
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d conversation(s) to %s", len(targets), outputDir), func() error {
			for _, target := range targets {
				transcript, err := fetchTranscript(ctx, client, target)
				if err != nil {
					internal.LogError("Failed to fetch %s session %s: %v", target.Channel, target.SessionID, err)
					continue
				}

				filename := fmt.Sprintf("chat_%s_%d_%s.%s", target.Channel, target.WorkspaceID, target.SessionID, exporter.Extension())
				path := filepath.Join(outputDir, filename)
				if err := writeTranscript(exporter, transcript, path); err != nil {
					internal.LogError("%v", err)
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		if exported < len(targets) {
			return fmt.Errorf("exported %d of %d conversation(s) to %s", exported, len(targets), outputDir)
		}
		internal.PrintSuccess(fmt.Sprintf("Export complete: %d conversation(s) exported to %s", exported, outputDir))
		return nil
	},
}

// exportTargets resolves which sessions the flags select
func exportTargets(ctx context.Context, store internal.SessionStore) ([]internal.StoredSession, error) {
	if exportAll {
		return store.List(ctx)
	}

	ch, err := selectedChannel()
	if err != nil {
		return nil, err
	}
	sessionID, err := resolveSessionID(ctx, store, ch, exportSessionID)
	if err != nil {
		return nil, err
	}
	return []internal.StoredSession{{Channel: ch.Name, WorkspaceID: workspaceID, SessionID: sessionID}}, nil
}

// fetchTranscript builds a transcript from the session's full history. The
// API has no session lookup, so session times come from the messages.
func fetchTranscript(ctx context.Context, api internal.ChatAPI, target internal.StoredSession) (*internal.Transcript, error) {
	ch, err := internal.LookupChannel(target.Channel)
	if err != nil {
		return nil, err
	}
	msgs, err := api.History(ctx, ch, target.SessionID)
	if err != nil {
		return nil, err
	}

	session := internal.ChatSession{
		ID:          target.SessionID,
		WorkspaceID: target.WorkspaceID,
		IsActive:    true,
	}
	if n := len(msgs); n > 0 {
		session.CreatedAt = msgs[0].SentAt
		session.LastActivityAt = msgs[n-1].SentAt
	}

	return &internal.Transcript{
		Channel:     ch.Name,
		WorkspaceID: target.WorkspaceID,
		Session:     session,
		Messages:    msgs,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func writeTranscript(exporter export.Exporter, transcript *internal.Transcript, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(transcript, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&exportSessionID, "session", "", "Export a specific session by ID")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every stored conversation")
}
