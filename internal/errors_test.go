package internal

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		contains []string
	}{
		{
			name:     "status with server message",
			err:      &APIError{Op: "history", StatusCode: 404, Message: "Chat session not found", Err: ErrSessionNotFound},
			contains: []string{"history", "404", "Chat session not found"},
		},
		{
			name:     "status text fallback",
			err:      &APIError{Op: "send-message", StatusCode: 500},
			contains: []string{"send-message", "Internal Server Error"},
		},
		{
			name:     "transport error only",
			err:      &APIError{Op: "start-session", Err: errors.New("connection refused")},
			contains: []string{"start-session", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("APIError.Error() = %q, should contain %q", msg, want)
				}
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	originalErr := errors.New("disk I/O error")
	err := &StoreError{Op: "save", Key: "chatSession:v1:customer:42", Err: originalErr}

	if !strings.Contains(err.Error(), "store error") {
		t.Errorf("StoreError.Error() should contain 'store error', got: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "chatSession:v1:customer:42") {
		t.Errorf("StoreError.Error() should contain key, got: %q", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("StoreError.Unwrap() should return original error")
	}
}

func TestConfigError(t *testing.T) {
	originalErr := errors.New("must be positive")
	err := &ConfigError{Field: "poll_interval", Value: "-1s", Err: originalErr}

	if !strings.Contains(err.Error(), "poll_interval") {
		t.Errorf("ConfigError.Error() should contain field, got: %q", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("ConfigError.Unwrap() should return original error")
	}
}

func TestExportError(t *testing.T) {
	originalErr := errors.New("write failed")
	err := &ExportError{Format: "jsonl", Path: "/tmp/out.jsonl", Err: originalErr}

	if !strings.Contains(err.Error(), "export error") {
		t.Errorf("ExportError.Error() should contain 'export error', got: %q", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("ExportError.Unwrap() should return original error")
	}
}

func TestIsSessionGone(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrSessionNotFound, true},
		{"wrapped in api error", &APIError{Op: "history", StatusCode: 404, Err: ErrSessionNotFound}, true},
		{"wrapped with fmt", fmt.Errorf("poll: %w", &APIError{Op: "history", Err: ErrSessionNotFound}), true},
		{"unauthorized", &APIError{Op: "history", StatusCode: 401, Err: ErrUnauthorized}, false},
		{"plain", errors.New("timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSessionGone(tt.err); got != tt.want {
				t.Errorf("IsSessionGone() = %v, want %v", got, tt.want)
			}
		})
	}
}
