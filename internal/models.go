package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ChatSession is one conversation thread tied to a workspace
type ChatSession struct {
	ID             string    `json:"sessionId" yaml:"id"`
	WorkspaceID    int64     `json:"workspaceId" yaml:"workspace_id"`
	CreatedAt      time.Time `json:"createdAt" yaml:"created_at,omitempty"`
	LastActivityAt time.Time `json:"lastActivityAt" yaml:"last_activity_at,omitempty"`
	IsActive       bool      `json:"isActive" yaml:"is_active"`
	CustomerName   string    `json:"customerName,omitempty" yaml:"customer_name,omitempty"`
}

// ChatMessage is one turn in a session. IsOwner is true for the responding
// side (host, owner or assistant).
type ChatMessage struct {
	ID        int64     `json:"id" yaml:"id"`
	SessionID string    `json:"sessionId" yaml:"session_id"`
	IsOwner   bool      `json:"isOwner" yaml:"is_owner"`
	Content   string    `json:"content" yaml:"content"`
	SentAt    time.Time `json:"sentAt" yaml:"sent_at"`
}

// Actor returns the display role of the sender for the given channel
func (m ChatMessage) Actor(ch Channel) string {
	if m.IsOwner {
		return ch.ResponderLabel
	}
	return ch.VisitorLabel
}

type rawSession struct {
	ID             string `json:"sessionId"`
	WorkspaceID    int64  `json:"workspaceId"`
	CreatedAt      string `json:"createdAt"`
	LastActivityAt string `json:"lastActivityAt"`
	IsActive       *bool  `json:"isActive"`
	CustomerName   string `json:"customerName"`
}

// UnmarshalJSON accepts the server's timestamp layouts, with or without zone
func (s *ChatSession) UnmarshalJSON(data []byte) error {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	created, err := parseServerTime(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	last, err := parseServerTime(raw.LastActivityAt)
	if err != nil {
		return fmt.Errorf("lastActivityAt: %w", err)
	}
	*s = ChatSession{
		ID:             raw.ID,
		WorkspaceID:    raw.WorkspaceID,
		CreatedAt:      created,
		LastActivityAt: last,
		IsActive:       raw.IsActive == nil || *raw.IsActive,
		CustomerName:   raw.CustomerName,
	}
	return nil
}

type rawMessage struct {
	ID        int64  `json:"id"`
	SessionID string `json:"sessionId"`
	IsOwner   bool   `json:"isOwner"`
	Content   string `json:"content"`
	SentAt    string `json:"sentAt"`
}

// UnmarshalJSON accepts the server's timestamp layouts, with or without zone
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sent, err := parseServerTime(raw.SentAt)
	if err != nil {
		return fmt.Errorf("sentAt: %w", err)
	}
	*m = ChatMessage{
		ID:        raw.ID,
		SessionID: raw.SessionID,
		IsOwner:   raw.IsOwner,
		Content:   raw.Content,
		SentAt:    sent,
	}
	return nil
}

var serverTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseServerTime parses timestamps; zone-less values are taken as UTC
func parseServerTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range serverTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Envelope is the {succeeded, message, data} wrapper used by the API
type Envelope struct {
	Succeeded bool            `json:"succeeded"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

// StartSessionRequest opens a session with its first message
type StartSessionRequest struct {
	InitialMessage string `json:"initialMessage"`
	WorkspaceID    int64  `json:"workspaceId"`
}

// SendMessageRequest appends a message to an existing session
type SendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// Transcript is a session with its full history, the unit exporters render
type Transcript struct {
	Channel     string        `json:"channel" yaml:"channel"`
	WorkspaceID int64         `json:"workspace_id" yaml:"workspace_id"`
	Session     ChatSession   `json:"session" yaml:"session"`
	Messages    []ChatMessage `json:"messages" yaml:"messages"`
	FetchedAt   time.Time     `json:"fetched_at" yaml:"fetched_at"`
}

// ValidateHistory checks that messages are in non-decreasing id and time order
func ValidateHistory(msgs []ChatMessage) error {
	for i := 1; i < len(msgs); i++ {
		prev, cur := msgs[i-1], msgs[i]
		if cur.ID < prev.ID {
			return fmt.Errorf("message %d out of order: id %d after %d", i, cur.ID, prev.ID)
		}
		if !prev.SentAt.IsZero() && !cur.SentAt.IsZero() && cur.SentAt.Before(prev.SentAt) {
			return fmt.Errorf("message %d out of order: sent %s after %s", i,
				cur.SentAt.Format(time.RFC3339), prev.SentAt.Format(time.RFC3339))
		}
	}
	return nil
}

// containsMessage reports whether msgs already holds a message with id
func containsMessage(msgs []ChatMessage, id int64) bool {
	if id == 0 {
		return false
	}
	for _, m := range msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}

// ActorOf labels a message's sender using the transcript's channel
func (t *Transcript) ActorOf(m ChatMessage) string {
	if ch, err := LookupChannel(t.Channel); err == nil {
		return m.Actor(ch)
	}
	if m.IsOwner {
		return "responder"
	}
	return "visitor"
}
