package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var chatSessionID string

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open an interactive conversation",
	Long: `Open the conversation for a workspace on the selected channel.

The stored conversation is resumed and kept up to date by polling. Type a
message and press Enter to send it; the first message starts a new
conversation. An empty line retries a message that failed to send.

Commands:
  /refresh   fetch history now
  /quit      leave the chat`,
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), ch, client, store)
	},
}

// runChat drives one conversation: an input loop submitting lines and a
// render loop printing snapshots, until input ends or ctx is cancelled.
func runChat(ctx context.Context, in io.Reader, out io.Writer, ch internal.Channel, api internal.ChatAPI, store internal.SessionStore) error {
	out = &lockedWriter{w: out}
	updates := make(chan internal.Snapshot, 16)
	conv, err := internal.NewConversation(internal.ConversationOptions{
		Channel:      ch,
		WorkspaceID:  workspaceID,
		API:          api,
		Store:        store,
		Detector:     newDetector(),
		Notifier:     internal.NewTerminalNotifier(out),
		PollInterval: cfg.PollInterval,
		OnUpdate: func(s internal.Snapshot) {
			// Drop the oldest pending snapshot rather than block the poller.
			select {
			case updates <- s:
			default:
				select {
				case <-updates:
				default:
				}
				select {
				case updates <- s:
				default:
				}
			}
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := conv.Open(ctx); err != nil {
		return err
	}
	if chatSessionID != "" {
		if err := conv.Attach(ctx, chatSessionID); err != nil {
			return err
		}
	}
	if conv.State() == internal.NoSession {
		if ch.CanStart() {
			fmt.Fprintln(out, sessionMetaStyle.Render("No conversation yet. Type a message to start one."))
		} else {
			fmt.Fprintln(out, sessionMetaStyle.Render("Pick a conversation with --session (see 'workspace-chat inbox')."))
		}
	}

	lines := make(chan string)
	go readLines(in, lines)

	printer := newTranscriptPrinter(out, ch)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if quit := handleLine(gctx, conv, line); quit {
					return nil
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				// Flush whatever the last submit produced.
				for {
					select {
					case s := <-updates:
						printer.Print(s)
					default:
						return nil
					}
				}
			case s := <-updates:
				printer.Print(s)
			}
		}
	})

	err = g.Wait()
	conv.Close()
	return err
}

// lockedWriter serializes writes from the render loop and notices
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func readLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		internal.LogDebug("Input closed: %v", err)
	}
}

// handleLine runs one line of input and reports whether the chat should end
func handleLine(ctx context.Context, conv *internal.Conversation, line string) bool {
	switch strings.TrimSpace(line) {
	case "/quit", "/exit":
		return true
	case "/refresh":
		if err := conv.Refresh(ctx); err != nil && !errors.Is(err, internal.ErrNoSession) {
			internal.LogDebug("Refresh failed: %v", err)
		}
		return false
	case "":
		draft := conv.Draft()
		if draft == "" {
			return false
		}
		line = draft
	}

	if err := conv.Submit(ctx, line); err != nil {
		switch {
		case errors.Is(err, internal.ErrSendInFlight):
			internal.PrintWarning("Still sending the previous message")
		case errors.Is(err, internal.ErrEmptyMessage):
		default:
			// The conversation already notified; keep the detail for -v.
			internal.LogDebug("Submit failed: %v", err)
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Attach to this session id (owner inbox)")
}
