package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cuongvd6868/workspace-chat/internal"
	"github.com/cuongvd6868/workspace-chat/testutil"
)

func TestJSONExporter_Export(t *testing.T) {
	tests := []struct {
		name       string
		transcript *internal.Transcript
	}{
		{name: "basic transcript", transcript: internal.CreateTestTranscript("abc-123")},
		{name: "empty transcript", transcript: internal.CreateTestTranscriptWithMessages("abc-124", []internal.ChatMessage{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&JSONExporter{}).Export(tt.transcript, &buf); err != nil {
				t.Fatalf("JSONExporter.Export() error = %v", err)
			}

			output := buf.String()
			var got internal.Transcript
			testutil.JSONUnmarshal(t, buf.Bytes(), &got)
			if got.Session.ID != tt.transcript.Session.ID {
				t.Errorf("session id = %q, want %q", got.Session.ID, tt.transcript.Session.ID)
			}
			if len(got.Messages) != len(tt.transcript.Messages) {
				t.Errorf("messages = %d, want %d", len(got.Messages), len(tt.transcript.Messages))
			}
			if !strings.Contains(output, "  ") {
				t.Errorf("Output should be pretty-printed with indentation")
			}
		})
	}
}

func TestJSONExporter_Extension(t *testing.T) {
	if got := (&JSONExporter{}).Extension(); got != "json" {
		t.Errorf("JSONExporter.Extension() = %v, want json", got)
	}
}
