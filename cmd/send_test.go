package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/cuongvd6868/workspace-chat/testutil"
)

func TestSendCommand(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)
	srv.NextSessionIDs("abc-123")
	store := tempStore(t)

	out, err := runCLI(t, "", "send", "-w", "42", "--api", srv.URL, "--store", store, "Hello", "there")
	if err != nil {
		t.Fatalf("send error = %v", err)
	}
	if !strings.Contains(out, "Sent to session abc-123") {
		t.Errorf("unexpected output:\n%s", out)
	}
	calls := srv.Calls("/api/v1/chat/start-session")
	if len(calls) != 1 || calls[0].Body["initialMessage"] != "Hello there" {
		t.Fatalf("start-session calls = %+v", calls)
	}

	// The second message goes to the stored session.
	if _, err := runCLI(t, "", "send", "-w", "42", "--api", srv.URL, "--store", store, "Thanks"); err != nil {
		t.Fatalf("second send error = %v", err)
	}
	if n := len(srv.Calls("/api/v1/chat/send-message")); n != 1 {
		t.Errorf("send-message calls = %d, want 1", n)
	}
	if n := srv.MessageCount("abc-123"); n != 2 {
		t.Errorf("server holds %d messages, want 2", n)
	}
}

func TestSendCommand_OwnerNeedsSession(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)

	_, err := runCLI(t, "", "send", "-w", "42", "-c", "owner", "--api", srv.URL, "--ephemeral", "Welcome")
	if !errors.Is(err, internal.ErrStartUnsupported) {
		t.Fatalf("send error = %v, want ErrStartUnsupported", err)
	}

	srv.SeedSession("abc-123", 42, 1)
	if _, err := runCLI(t, "", "send", "-w", "42", "-c", "owner", "--api", srv.URL, "--ephemeral", "--session", "abc-123", "Welcome"); err != nil {
		t.Fatalf("send --session error = %v", err)
	}
	if n := len(srv.Calls("/api/v1/owner/chat/send-message")); n != 1 {
		t.Errorf("owner send calls = %d, want 1", n)
	}
}

func TestSendCommand_BlankMessage(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)

	_, err := runCLI(t, "", "send", "-w", "42", "--api", srv.URL, "--ephemeral", "   ")
	if !errors.Is(err, internal.ErrEmptyMessage) {
		t.Fatalf("send error = %v, want ErrEmptyMessage", err)
	}
	if n := len(srv.Calls("")); n != 0 {
		t.Errorf("blank message made %d request(s)", n)
	}
}
