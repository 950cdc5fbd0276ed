package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/cuongvd6868/workspace-chat/testutil"
)

func loadStored(t *testing.T, path, channel string, workspace int64) (string, bool) {
	t.Helper()
	db, err := internal.OpenDatabase(path)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer db.Close()
	id, ok, err := internal.NewSQLiteSessionStore(db).Load(context.Background(), channel, workspace)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return id, ok
}

func TestChatCommand_StartsAndResumes(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)
	srv.NextSessionIDs("abc-123")
	store := tempStore(t)

	out, err := runCLI(t, "Is the room free on Friday?\n/quit\n",
		"chat", "-w", "42", "--api", srv.URL, "--store", store)
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "Is the room free on Friday?") {
		t.Errorf("chat output missing the sent message:\n%s", out)
	}
	if id, ok := loadStored(t, store, internal.ChannelCustomer, 42); !ok || id != "abc-123" {
		t.Fatalf("stored session = %q, %v; want abc-123", id, ok)
	}

	srv.AddReply("abc-123", "Yes, from 9am.")
	out, err = runCLI(t, "/quit\n", "chat", "-w", "42", "--api", srv.URL, "--store", store)
	if err != nil {
		t.Fatalf("chat resume error = %v", err)
	}
	if !strings.Contains(out, "abc-123") || !strings.Contains(out, "Yes, from 9am.") {
		t.Errorf("resumed chat should show stored history:\n%s", out)
	}
	if n := len(srv.Calls("/api/v1/chat/start-session")); n != 1 {
		t.Errorf("start-session calls = %d, want 1", n)
	}
}

func TestChatCommand_ForgetsEndedSession(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)
	store := tempStore(t)

	if _, err := runCLI(t, "", "inbox", "-w", "42", "--store", store, "--attach", "gone-1"); err != nil {
		t.Fatalf("inbox --attach error = %v", err)
	}
	if _, ok := loadStored(t, store, internal.ChannelOwner, 42); !ok {
		t.Fatal("attach should store the owner session")
	}

	out, err := runCLI(t, "/quit\n", "chat", "-w", "42", "-c", "owner", "--api", srv.URL, "--store", store)
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if _, ok := loadStored(t, store, internal.ChannelOwner, 42); ok {
		t.Error("a session the server does not know should be forgotten")
	}
	if !strings.Contains(out, "This conversation has ended") {
		t.Errorf("expected an ended notice:\n%s", out)
	}
}

func TestChatCommand_BlankLinesSendNothing(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)

	_, err := runCLI(t, "\n   \n/quit\n", "chat", "-w", "42", "--api", srv.URL, "--ephemeral")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if n := len(srv.Calls("")); n != 0 {
		t.Errorf("blank input made %d request(s)", n)
	}
}

func TestTranscriptPrinter(t *testing.T) {
	ch, _ := internal.LookupChannel(internal.ChannelCustomer)
	var buf strings.Builder
	p := newTranscriptPrinter(&buf, ch)

	msgs := internal.CreateTestMessages("abc", 3)
	p.Print(internal.Snapshot{State: internal.HasSession, SessionID: "abc", Messages: msgs[:2]})
	p.Print(internal.Snapshot{State: internal.HasSession, SessionID: "abc", Messages: msgs})

	out := buf.String()
	if strings.Count(out, msgs[0].Content) != 1 {
		t.Errorf("first message printed %d times", strings.Count(out, msgs[0].Content))
	}
	if !strings.Contains(out, msgs[2].Content) {
		t.Error("appended message not printed")
	}

	// A replaced history reprints everything.
	replaced := internal.CreateTestMessages("abc", 3)
	replaced[1].ID = 99
	p.Print(internal.Snapshot{State: internal.HasSession, SessionID: "abc", Messages: replaced})
	if !strings.Contains(buf.String(), "(history updated)") {
		t.Error("replacing history should be announced")
	}
}
