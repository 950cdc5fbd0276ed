package internal

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestShowProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		message string
		fn      func() error
		wantErr bool
	}{
		{
			name:    "successful function",
			message: "Fetching history",
			fn:      func() error { return nil },
			wantErr: false,
		},
		{
			name:    "function with error",
			message: "Fetching history",
			fn:      func() error { return errors.New("test error") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgress(ctx, tt.message, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTerminalNotifier(t *testing.T) {
	tests := []struct {
		level NoticeLevel
		want  string
	}{
		{NoticeError, "ERROR: Message not sent. Please try again.\n"},
		{NoticeWarn, "WARNING: Message not sent. Please try again.\n"},
		{NoticeInfo, "Message not sent. Please try again.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			NewTerminalNotifier(&buf).Notify(tt.level, "Message not sent. Please try again.")
			if buf.String() != tt.want {
				t.Errorf("Notify() wrote %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestIsTerminal_Buffer(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}
