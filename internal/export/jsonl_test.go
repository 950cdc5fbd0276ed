package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cuongvd6868/workspace-chat/internal"
)

func TestJSONLExporter_Export(t *testing.T) {
	t.Run("empty transcript writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		tr := internal.CreateTestTranscriptWithMessages("abc-123", []internal.ChatMessage{})
		if err := (&JSONLExporter{}).Export(tr, &buf); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("Empty transcript should produce empty output, got: %q", buf.String())
		}
	})

	t.Run("one line per message with channel actors", func(t *testing.T) {
		var buf bytes.Buffer
		tr := internal.CreateTestTranscript("abc-123")
		if err := (&JSONLExporter{}).Export(tr, &buf); err != nil {
			t.Fatalf("Export() error = %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("got %d lines, want 2", len(lines))
		}
		wantActors := []string{"you", "host"}
		for i, line := range lines {
			var got jsonlLine
			if err := json.Unmarshal([]byte(line), &got); err != nil {
				t.Fatalf("Line %d is not valid JSON: %v", i, err)
			}
			if got.Actor != wantActors[i] {
				t.Errorf("line %d actor = %q, want %q", i, got.Actor, wantActors[i])
			}
			if got.Timestamp == "" {
				t.Errorf("line %d missing timestamp", i)
			}
		}
	})

	t.Run("zero timestamp omitted", func(t *testing.T) {
		var buf bytes.Buffer
		tr := internal.CreateTestTranscriptWithMessages("abc-123", []internal.ChatMessage{
			{ID: 1, SessionID: "abc-123", Content: "Hello"},
		})
		if err := (&JSONLExporter{}).Export(tr, &buf); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if strings.Contains(buf.String(), "timestamp") {
			t.Errorf("timestamp should be omitted, got %s", buf.String())
		}
	})
}

func TestJSONLExporter_Extension(t *testing.T) {
	if got := (&JSONLExporter{}).Extension(); got != "jsonl" {
		t.Errorf("JSONLExporter.Extension() = %v, want jsonl", got)
	}
}
