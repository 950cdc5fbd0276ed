package internal

import (
	"context"
	"testing"
	"time"

	"github.com/cuongvd6868/workspace-chat/testutil"
)

func TestConversation_DetectorsAgainstServer(t *testing.T) {
	tests := []struct {
		name        string
		detector    ChangeDetector
		wantReplace bool
	}{
		{name: "length misses same-size edit", detector: LengthDetector{}, wantReplace: false},
		{name: "last-id sees new tail", detector: LastIDDetector{}, wantReplace: true},
		{name: "full sees new tail", detector: FullDetector{}, wantReplace: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewFakeServer(t)
			srv.SeedSession("abc-123", 42, 3)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			conv, err := NewConversation(ConversationOptions{
				Channel:      mustChannel(t, ChannelOwner),
				WorkspaceID:  42,
				API:          newTestClient(t, srv.URL, nil),
				Store:        NewMemorySessionStore(),
				Detector:     tt.detector,
				Notifier:     &recordingNotifier{},
				PollInterval: time.Hour,
			})
			if err != nil {
				t.Fatalf("NewConversation() error = %v", err)
			}
			defer conv.Close()
			if err := conv.Open(ctx); err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if err := conv.Attach(ctx, "abc-123"); err != nil {
				t.Fatalf("Attach() error = %v", err)
			}
			if n := len(conv.Messages()); n != 3 {
				t.Fatalf("messages after attach = %d, want 3", n)
			}

			srv.ReplaceLast("abc-123", "edited reply")
			if err := conv.Refresh(ctx); err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}

			msgs := conv.Messages()
			replaced := msgs[len(msgs)-1].Content == "edited reply"
			if replaced != tt.wantReplace {
				t.Errorf("tail replaced = %v, want %v", replaced, tt.wantReplace)
			}
		})
	}
}

func TestConversation_SessionDeletedOnServer(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.NextSessionIDs("abc-123")
	store := NewMemorySessionStore()
	ctx := context.Background()

	conv, err := NewConversation(ConversationOptions{
		Channel:      mustChannel(t, ChannelCustomer),
		WorkspaceID:  42,
		API:          newTestClient(t, srv.URL, nil),
		Store:        store,
		Notifier:     &recordingNotifier{},
		PollInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	defer conv.Close()

	if err := conv.Submit(ctx, "Is parking included?"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if conv.SessionID() != "abc-123" {
		t.Fatalf("SessionID() = %q, want abc-123", conv.SessionID())
	}

	srv.DeleteSession("abc-123")
	_ = conv.Refresh(ctx)

	if conv.State() != NoSession {
		t.Errorf("State() = %v, want NoSession", conv.State())
	}
	if _, ok, _ := store.Load(ctx, ChannelCustomer, 42); ok {
		t.Error("stored session should be cleared")
	}
}
