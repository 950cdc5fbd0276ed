package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/cuongvd6868/workspace-chat/testutil"
)

func TestHistoryCommand(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)
	srv.SeedSession("abc-123", 42, 4)
	srv.BareHistory = true

	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
	}{
		{
			name:     "explicit session",
			args:     []string{"history", "--session", "abc-123"},
			contains: []string{"abc-123", "message 1", "message 4", "Messages: 4"},
		},
		{
			name:     "limit keeps the newest",
			args:     []string{"history", "--session", "abc-123", "-n", "2"},
			contains: []string{"message 3", "message 4", "2 earlier message(s)"},
			excludes: []string{"message 1"},
		},
		{
			name:     "since filters older messages",
			args:     []string{"history", "--session", "abc-123", "--since", "2025-03-01T09:03:00Z"},
			contains: []string{"message 3", "message 4"},
			excludes: []string{"message 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--api", srv.URL, "--ephemeral")
			out, err := runCLI(t, "", args...)
			if err != nil {
				t.Fatalf("history error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(out, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, out)
				}
			}
		})
	}
}

func TestHistoryCommand_NoStoredSession(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)

	_, err := runCLI(t, "", "history", "-w", "42", "--api", srv.URL, "--ephemeral")
	if !errors.Is(err, internal.ErrNoSession) {
		t.Errorf("history error = %v, want ErrNoSession", err)
	}
}

func TestHistoryCommand_ForgetsEndedSession(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)
	srv.NextSessionIDs("abc-123")
	store := tempStore(t)

	if _, err := runCLI(t, "", "send", "-w", "42", "--api", srv.URL, "--store", store, "Hello"); err != nil {
		t.Fatalf("send error = %v", err)
	}
	srv.DeleteSession("abc-123")

	_, err := runCLI(t, "", "history", "-w", "42", "--api", srv.URL, "--store", store)
	if !internal.IsSessionGone(err) {
		t.Fatalf("history error = %v, want session gone", err)
	}
	if _, ok := loadStored(t, store, internal.ChannelCustomer, 42); ok {
		t.Error("ended session should be forgotten")
	}
}

func TestHistoryCommand_BadSinceSkipsFetch(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFakeServer(t)
	srv.SeedSession("abc-123", 42, 2)

	_, err := runCLI(t, "", "history", "--session", "abc-123", "--since", "yesterday", "--api", srv.URL, "--ephemeral")
	if err == nil || !strings.Contains(err.Error(), "invalid --since") {
		t.Fatalf("history error = %v, want invalid --since", err)
	}
	if n := len(srv.Calls("")); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}
