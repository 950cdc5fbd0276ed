package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/cuongvd6868/workspace-chat/internal"
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))

	visitorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true).
			Padding(0, 1)

	responderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true).
			Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

func displaySessionHeader(w io.Writer, ch internal.Channel, sessionID string, count int) {
	fmt.Fprintln(w, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s chat · workspace %d", ch.Name, workspaceID)))
	meta := []string{fmt.Sprintf("Session: %s", sessionID), fmt.Sprintf("Messages: %d", count)}
	fmt.Fprintln(w, sessionMetaStyle.Render(strings.Join(meta, " • ")))
	fmt.Fprintln(w)
}

func displayMessage(w io.Writer, ch internal.Channel, msg internal.ChatMessage) {
	style := visitorStyle
	if msg.IsOwner {
		style = responderStyle
	}

	header := style.Render(msg.Actor(ch))
	if !msg.SentAt.IsZero() {
		header += " " + timestampStyle.Render(formatWhen(msg.SentAt))
	}
	fmt.Fprintln(w, header)

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	} else {
		fmt.Fprintln(w, messageContentStyle.Render(wrapText(content, 80)))
	}
	fmt.Fprintln(w)
}

// formatWhen renders a timestamp relative to today in local time
func formatWhen(t time.Time) string {
	t = t.Local()
	now := time.Now()
	switch {
	case t.Year() == now.Year() && t.YearDay() == now.YearDay():
		return t.Format("15:04")
	case now.Sub(t) < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case t.Year() == now.Year():
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			switch {
			case currentLine == "":
				currentLine = word
			case len(currentLine)+len(word)+1 > width:
				wrapped = append(wrapped, currentLine)
				currentLine = word
			default:
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

// transcriptPrinter writes conversation snapshots incrementally: new tail
// messages are appended, anything else reprints the whole history.
type transcriptPrinter struct {
	w         io.Writer
	ch        internal.Channel
	sessionID string
	printed   []int64
}

func newTranscriptPrinter(w io.Writer, ch internal.Channel) *transcriptPrinter {
	return &transcriptPrinter{w: w, ch: ch}
}

func (p *transcriptPrinter) Print(s internal.Snapshot) {
	if s.State == internal.NoSession {
		if p.sessionID != "" {
			fmt.Fprintln(p.w, sessionMetaStyle.Render("No active conversation. Type a message to start one."))
		}
		p.sessionID = ""
		p.printed = nil
		return
	}
	if s.SessionID != p.sessionID {
		p.sessionID = s.SessionID
		p.printed = nil
		displaySessionHeader(p.w, p.ch, s.SessionID, len(s.Messages))
	}

	if !p.isPrefix(s.Messages) {
		fmt.Fprintln(p.w, sessionMetaStyle.Render("(history updated)"))
		p.printed = nil
	}
	for _, msg := range s.Messages[len(p.printed):] {
		displayMessage(p.w, p.ch, msg)
		p.printed = append(p.printed, msg.ID)
	}
}

func (p *transcriptPrinter) isPrefix(msgs []internal.ChatMessage) bool {
	if len(msgs) < len(p.printed) {
		return false
	}
	for i, id := range p.printed {
		if msgs[i].ID != id {
			return false
		}
	}
	return true
}
