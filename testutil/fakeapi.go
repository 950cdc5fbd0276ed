package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"
)

// FakeMessage mirrors the wire shape of a chat message
type FakeMessage struct {
	ID        int64  `json:"id"`
	SessionID string `json:"sessionId"`
	IsOwner   bool   `json:"isOwner"`
	Content   string `json:"content"`
	SentAt    string `json:"sentAt"`
}

// Call records one request the fake server received
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   map[string]any
}

type fakeSession struct {
	id          string
	workspaceID int64
	messages    []FakeMessage
}

// FakeServer is an in-process stand-in for the marketplace chat API
type FakeServer struct {
	*httptest.Server

	// BareHistory returns history as a bare array instead of an envelope
	BareHistory bool
	// WrapSent returns send-message data as {"message": {...}}
	WrapSent bool

	mu            sync.Mutex
	sessions      map[string]*fakeSession
	nextSessionID []string
	nextMsgID     int64
	calls         []Call
	failures      map[string][]int
	clock         time.Time
}

// NewFakeServer starts a fake API server that closes with the test
func NewFakeServer(t *testing.T) *FakeServer {
	t.Helper()
	f := &FakeServer{
		sessions: make(map[string]*fakeSession),
		failures: make(map[string][]int),
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat/start-session", f.handleStart)
	mux.HandleFunc("POST /api/v1/ai-chat/start-session", f.handleStart)
	mux.HandleFunc("POST /api/v1/chat/send-message", f.handleSend(false))
	mux.HandleFunc("POST /api/v1/ai-chat/send-message", f.handleSend(false))
	mux.HandleFunc("POST /api/v1/owner/chat/send-message", f.handleSend(true))
	mux.HandleFunc("GET /api/v1/chat/history", f.handleHistory)
	mux.HandleFunc("GET /api/v1/ai-chat/history", f.handleHistory)
	mux.HandleFunc("GET /api/v1/owner/chat/sessions", f.handleList)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Close)
	return f
}

// NextSessionIDs queues the ids returned by the next start-session calls
func (f *FakeServer) NextSessionIDs(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSessionID = append(f.nextSessionID, ids...)
}

// SeedSession creates a session with n alternating messages
func (f *FakeServer) SeedSession(id string, workspaceID int64, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSession{id: id, workspaceID: workspaceID}
	for i := 0; i < n; i++ {
		s.messages = append(s.messages, f.newMessageLocked(id, i%2 == 1, fmt.Sprintf("message %d", i+1)))
	}
	f.sessions[id] = s
}

// AddReply appends a responder-side message, as the host would
func (f *FakeServer) AddReply(sessionID, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.messages = append(s.messages, f.newMessageLocked(sessionID, true, content))
	}
}

// ReplaceLast swaps the newest message for a new one, keeping the length
func (f *FakeServer) ReplaceLast(sessionID, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok && len(s.messages) > 0 {
		s.messages[len(s.messages)-1] = f.newMessageLocked(sessionID, true, content)
	}
}

// DeleteSession makes the server stop resolving a session
func (f *FakeServer) DeleteSession(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
}

// MessageCount returns the number of stored messages for a session
func (f *FakeServer) MessageCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		return len(s.messages)
	}
	return -1
}

// FailNext makes the next call to path answer with status
func (f *FakeServer) FailNext(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = append(f.failures[path], status)
}

// Calls returns recorded requests for path (all requests when path is empty)
func (f *FakeServer) Calls(path string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if path == "" || c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Header: r.Header.Clone()}
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&call.Body)
		}

		f.mu.Lock()
		f.calls = append(f.calls, call)
		var status int
		if queued := f.failures[r.URL.Path]; len(queued) > 0 {
			status = queued[0]
			f.failures[r.URL.Path] = queued[1:]
		}
		f.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]any{"succeeded": false, "message": http.StatusText(status)})
			return
		}
		// Handlers read the already-decoded body from the context.
		r = r.WithContext(withBody(r.Context(), call.Body))
		next.ServeHTTP(w, r)
	})
}

func (f *FakeServer) handleStart(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	text, _ := body["initialMessage"].(string)
	workspace, _ := body["workspaceId"].(float64)

	f.mu.Lock()
	var id string
	if len(f.nextSessionID) > 0 {
		id = f.nextSessionID[0]
		f.nextSessionID = f.nextSessionID[1:]
	} else {
		id = "sess-" + strconv.Itoa(len(f.sessions)+1)
	}
	s := &fakeSession{id: id, workspaceID: int64(workspace)}
	s.messages = append(s.messages, f.newMessageLocked(id, false, text))
	f.sessions[id] = s
	created := f.clock.Format(time.RFC3339)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"succeeded": true,
		"message":   "Session started",
		"data": map[string]any{
			"sessionId":      id,
			"workspaceId":    int64(workspace),
			"createdAt":      created,
			"lastActivityAt": created,
			"isActive":       true,
		},
	})
}

func (f *FakeServer) handleSend(owner bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := bodyFrom(r.Context())
		sessionID, _ := body["sessionId"].(string)
		text, _ := body["message"].(string)

		f.mu.Lock()
		s, ok := f.sessions[sessionID]
		if !ok {
			f.mu.Unlock()
			writeJSON(w, http.StatusNotFound, map[string]any{"succeeded": false, "message": "Chat session not found"})
			return
		}
		msg := f.newMessageLocked(sessionID, owner, text)
		s.messages = append(s.messages, msg)
		wrap := f.WrapSent
		f.mu.Unlock()

		var data any = msg
		if wrap {
			data = map[string]any{"message": msg}
		}
		writeJSON(w, http.StatusOK, map[string]any{"succeeded": true, "message": "Sent", "data": data})
	}
}

func (f *FakeServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")

	f.mu.Lock()
	s, ok := f.sessions[sessionID]
	var msgs []FakeMessage
	if ok {
		msgs = append([]FakeMessage{}, s.messages...)
	}
	bare := f.BareHistory
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"succeeded": false, "message": "Chat session not found"})
		return
	}
	if bare {
		writeJSON(w, http.StatusOK, msgs)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"succeeded": true, "message": "", "data": msgs})
}

func (f *FakeServer) handleList(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := strconv.ParseInt(r.URL.Query().Get("workspaceId"), 10, 64)

	f.mu.Lock()
	var out []map[string]any
	for _, s := range f.sessions {
		if s.workspaceID != workspaceID {
			continue
		}
		last := f.clock
		if n := len(s.messages); n > 0 {
			last, _ = time.Parse(time.RFC3339, s.messages[n-1].SentAt)
		}
		out = append(out, map[string]any{
			"sessionId":      s.id,
			"workspaceId":    s.workspaceID,
			"createdAt":      f.clock.Format(time.RFC3339),
			"lastActivityAt": last.Format(time.RFC3339),
			"isActive":       true,
		})
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"succeeded": true, "message": "", "data": out})
}

func (f *FakeServer) newMessageLocked(sessionID string, owner bool, content string) FakeMessage {
	f.nextMsgID++
	return FakeMessage{
		ID:        f.nextMsgID,
		SessionID: sessionID,
		IsOwner:   owner,
		Content:   content,
		SentAt:    f.clock.Add(time.Duration(f.nextMsgID) * time.Minute).Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
