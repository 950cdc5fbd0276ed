package internal

import (
	"time"
)

// testEpoch anchors fixture timestamps so output is stable
var testEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// CreateTestMessages creates n alternating visitor/owner messages for a session
func CreateTestMessages(sessionID string, n int) []ChatMessage {
	msgs := make([]ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, ChatMessage{
			ID:        int64(i + 1),
			SessionID: sessionID,
			IsOwner:   i%2 == 1,
			Content:   testContent[i%len(testContent)],
			SentAt:    testEpoch.Add(time.Duration(i) * time.Minute),
		})
	}
	return msgs
}

var testContent = []string{
	"Hello, is the meeting room free on Friday?",
	"Yes, it is available from 9am.",
	"Great, can I book it for the whole day?",
	"Sure, go ahead with the checkout.",
}

// CreateTestSession creates an active session for a workspace
func CreateTestSession(id string, workspaceID int64) ChatSession {
	return ChatSession{
		ID:             id,
		WorkspaceID:    workspaceID,
		CreatedAt:      testEpoch,
		LastActivityAt: testEpoch.Add(10 * time.Minute),
		IsActive:       true,
	}
}

// CreateTestTranscript creates a customer transcript with two messages
func CreateTestTranscript(sessionID string) *Transcript {
	return CreateTestTranscriptWithMessages(sessionID, CreateTestMessages(sessionID, 2))
}

// CreateTestTranscriptWithMessages creates a customer transcript with custom messages
func CreateTestTranscriptWithMessages(sessionID string, msgs []ChatMessage) *Transcript {
	return &Transcript{
		Channel:     ChannelCustomer,
		WorkspaceID: 42,
		Session:     CreateTestSession(sessionID, 42),
		Messages:    msgs,
		FetchedAt:   testEpoch.Add(time.Hour),
	}
}
