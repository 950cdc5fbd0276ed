package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cuongvd6868/workspace-chat/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Chat %s\n\n", transcript.Session.ID)

	_, _ = fmt.Fprintf(w, "**Channel:** %s  \n", transcript.Channel)
	_, _ = fmt.Fprintf(w, "**Workspace:** %d  \n", transcript.WorkspaceID)
	if !transcript.Session.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Started:** %s  \n", transcript.Session.CreatedAt.UTC().Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(transcript.Messages))

	if !transcript.Session.IsActive {
		_, _ = fmt.Fprintf(w, "_This conversation is closed._\n\n")
	}

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range transcript.Messages {
		timestamp := ""
		if !msg.SentAt.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.SentAt.UTC().Format(time.RFC3339))
		}

		content := escapeMarkdown(msg.Content)

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", transcript.ActorOf(msg), timestamp, content)

		if i < len(transcript.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
