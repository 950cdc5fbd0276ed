package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cuongvd6868/workspace-chat/internal"
)

// JSONLExporter exports transcripts in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlLine struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Actor     string `json:"actor"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range transcript.Messages {
		line := jsonlLine{
			ID:        msg.ID,
			SessionID: msg.SessionID,
			Actor:     transcript.ActorOf(msg),
			Content:   msg.Content,
		}
		if !msg.SentAt.IsZero() {
			line.Timestamp = msg.SentAt.UTC().Format(time.RFC3339)
		}

		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
