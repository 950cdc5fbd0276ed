package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatAPI is the remote surface the chat core depends on
type ChatAPI interface {
	StartSession(ctx context.Context, ch Channel, workspaceID int64, initialMessage string) (*ChatSession, error)
	SendMessage(ctx context.Context, ch Channel, sessionID, text string) (*ChatMessage, error)
	History(ctx context.Context, ch Channel, sessionID string) ([]ChatMessage, error)
}

// ClientOptions configures a Client
type ClientOptions struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	HTTPClient     *http.Client
	OnUnauthorized func()

	// MaxResponseBytes caps a response body; zero means DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// Client talks to the marketplace chat API
type Client struct {
	baseURL    string
	timeout    time.Duration
	maxBody    int64
	httpClient *http.Client
	guard      *AuthGuard
}

// NewClient creates a client and installs the auth guard on its transport
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base URL required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBytes
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		maxBody:    maxBody,
		httpClient: hc,
		guard:      InstallAuthGuard(hc, opts.Token, opts.OnUnauthorized),
	}, nil
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string { return c.baseURL }

// Guard returns the auth guard installed on the client's transport
func (c *Client) Guard() *AuthGuard { return c.guard }

// StartSession opens a session with its first message. Not idempotent.
func (c *Client) StartSession(ctx context.Context, ch Channel, workspaceID int64, initialMessage string) (*ChatSession, error) {
	const op = "start-session"
	if !ch.CanStart() {
		return nil, &APIError{Op: op, Err: ErrStartUnsupported}
	}

	raw, err := c.do(ctx, op, http.MethodPost, ch.StartPath, nil, StartSessionRequest{
		InitialMessage: initialMessage,
		WorkspaceID:    workspaceID,
	})
	if err != nil {
		return nil, err
	}
	data, err := unwrapEnvelope(op, raw, false)
	if err != nil {
		return nil, err
	}

	var session ChatSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &APIError{Op: op, Message: "malformed response", Err: err}
	}
	if session.ID == "" {
		return nil, &APIError{Op: op, Message: "response has no sessionId"}
	}
	if session.WorkspaceID == 0 {
		session.WorkspaceID = workspaceID
	}
	return &session, nil
}

// SendMessage appends text to a session. A nil message with a nil error
// means the server accepted the message without echoing it back.
func (c *Client) SendMessage(ctx context.Context, ch Channel, sessionID, text string) (*ChatMessage, error) {
	const op = "send-message"
	raw, err := c.do(ctx, op, http.MethodPost, ch.SendPath, nil, SendMessageRequest{
		SessionID: sessionID,
		Message:   text,
	})
	if err != nil {
		return nil, err
	}
	data, err := unwrapEnvelope(op, raw, true)
	if err != nil {
		return nil, err
	}
	if isNullJSON(data) {
		return nil, nil
	}

	var wrapped struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && isJSONObject(wrapped.Message) {
		data = wrapped.Message
	}

	var msg ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &APIError{Op: op, Message: "malformed response", Err: err}
	}
	if msg.SessionID == "" {
		msg.SessionID = sessionID
	}
	return &msg, nil
}

// History fetches the full message list, oldest first
func (c *Client) History(ctx context.Context, ch Channel, sessionID string) ([]ChatMessage, error) {
	const op = "history"
	query := url.Values{"sessionId": {sessionID}}
	raw, err := c.do(ctx, op, http.MethodGet, ch.HistoryPath, query, nil)
	if err != nil {
		return nil, err
	}
	data, err := unwrapEnvelope(op, raw, true)
	if err != nil {
		return nil, err
	}
	if isNullJSON(data) {
		return []ChatMessage{}, nil
	}

	var msgs []ChatMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, &APIError{Op: op, Message: "malformed response", Err: err}
	}
	if msgs == nil {
		msgs = []ChatMessage{}
	}
	return msgs, nil
}

// ListSessions returns the owner inbox for a workspace
func (c *Client) ListSessions(ctx context.Context, ch Channel, workspaceID int64) ([]ChatSession, error) {
	const op = "list-sessions"
	if ch.ListPath == "" {
		return nil, &APIError{Op: op, Message: fmt.Sprintf("channel %s has no inbox", ch.Name)}
	}
	query := url.Values{"workspaceId": {strconv.FormatInt(workspaceID, 10)}}
	raw, err := c.do(ctx, op, http.MethodGet, ch.ListPath, query, nil)
	if err != nil {
		return nil, err
	}
	data, err := unwrapEnvelope(op, raw, false)
	if err != nil {
		return nil, err
	}
	var sessions []ChatSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, &APIError{Op: op, Message: "malformed response", Err: err}
	}
	return sessions, nil
}

// Ping checks that the API host answers HTTP at all
func (c *Client) Ping(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// ---------------- HTTP helpers ----------------

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, &APIError{Op: op, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return nil, &APIError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	LogFields("api request", "op", op, "method", method, "path", path, "request_id", requestID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, &APIError{Op: op, StatusCode: http.StatusUnauthorized, Err: ErrUnauthorized}
		}
		return nil, &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	// One byte past the limit tells a full body from a cut one.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(raw)) > c.maxBody {
		LogFields("api response too large", "op", op, "status", resp.StatusCode, "request_id", requestID, "limit", c.maxBody)
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: "response too large", Err: ErrResponseTooLarge}
	}
	LogFields("api response", "op", op, "status", resp.StatusCode, "request_id", requestID, "bytes", len(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, resp.StatusCode, raw)
	}
	return raw, nil
}

// sessionScoped ops take a session id, so a 404 means the session is gone
func sessionScoped(op string) bool {
	return op == "history" || op == "send-message"
}

func statusError(op string, status int, raw []byte) error {
	e := &APIError{Op: op, StatusCode: status, Message: serverMessage(raw)}
	switch {
	case status == http.StatusUnauthorized:
		e.Err = ErrUnauthorized
	case (status == http.StatusNotFound || status == http.StatusGone) && sessionScoped(op) && isJSONBody(raw):
		e.Err = ErrSessionNotFound
	}
	return e
}

func serverMessage(raw []byte) string {
	var env struct {
		Message string `json:"message"`
		Title   string `json:"title"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		if msg := strings.TrimSpace(env.Message); msg != "" {
			return msg
		}
		return strings.TrimSpace(env.Title)
	}
	body := strings.TrimSpace(string(raw))
	if len(body) > 200 {
		body = body[:200]
	}
	return body
}

// unwrapEnvelope normalizes both response shapes: an envelope returns its
// data, anything else is returned as-is.
func unwrapEnvelope(op string, raw []byte, scoped bool) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if trimmed[0] != '{' {
		return trimmed, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, &APIError{Op: op, Message: "malformed response", Err: err}
	}
	if _, ok := probe["succeeded"]; !ok {
		return trimmed, nil
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &APIError{Op: op, Message: "malformed envelope", Err: err}
	}
	if !env.Succeeded {
		e := &APIError{Op: op, StatusCode: http.StatusOK, Message: env.Message}
		if scoped && mentionsMissingSession(env.Message) {
			e.Err = ErrSessionNotFound
		}
		return nil, e
	}
	if len(env.Data) == 0 {
		return json.RawMessage("null"), nil
	}
	return env.Data, nil
}

func mentionsMissingSession(msg string) bool {
	msg = strings.ToLower(msg)
	if !strings.Contains(msg, "session") {
		return false
	}
	for _, marker := range []string{"not found", "does not exist", "expired"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isJSONBody reports whether raw is a JSON object or array
func isJSONBody(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && (t[0] == '{' || t[0] == '[') && json.Valid(t)
}

func isNullJSON(data json.RawMessage) bool {
	t := bytes.TrimSpace(data)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func isJSONObject(data json.RawMessage) bool {
	t := bytes.TrimSpace(data)
	return len(t) > 0 && t[0] == '{'
}
