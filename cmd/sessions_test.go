package cmd

import (
	"strings"
	"testing"

	"github.com/cuongvd6868/workspace-chat/internal"
)

func TestSessionsCommand(t *testing.T) {
	isolateEnv(t)
	store := tempStore(t)

	out, err := runCLI(t, "", "sessions", "--store", store)
	if err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	if !strings.Contains(out, "No stored conversations") {
		t.Errorf("empty store output:\n%s", out)
	}

	for _, args := range [][]string{
		{"inbox", "-w", "42", "--attach", "owner-1"},
		{"inbox", "-w", "7", "--attach", "owner-2"},
	} {
		if _, err := runCLI(t, "", append(args, "--store", store)...); err != nil {
			t.Fatalf("%v error = %v", args, err)
		}
	}

	out, err = runCLI(t, "", "sessions", "--store", store)
	if err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	for _, want := range []string{"2 stored conversation(s)", "owner-1", "owner-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, "", "sessions", "clear", "-c", "owner", "-w", "42", "--store", store); err != nil {
		t.Fatalf("sessions clear error = %v", err)
	}
	if _, ok := loadStored(t, store, internal.ChannelOwner, 42); ok {
		t.Error("cleared session still stored")
	}
	if id, ok := loadStored(t, store, internal.ChannelOwner, 7); !ok || id != "owner-2" {
		t.Error("clear must only touch the selected workspace")
	}

	out, err = runCLI(t, "", "sessions", "clear", "--all", "--store", store)
	if err != nil {
		t.Fatalf("sessions clear --all error = %v", err)
	}
	if !strings.Contains(out, "Forgot 1 conversation(s)") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, ok := loadStored(t, store, internal.ChannelOwner, 7); ok {
		t.Error("--all should forget everything")
	}
}
