package internal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// State is the composer state
type State int

const (
	NoSession State = iota
	HasSession
)

func (s State) String() string {
	if s == HasSession {
		return "has-session"
	}
	return "no-session"
}

// Snapshot is an immutable view of a conversation handed to renderers
type Snapshot struct {
	State     State
	SessionID string
	Messages  []ChatMessage
}

// ConversationOptions configures a Conversation
type ConversationOptions struct {
	Channel      Channel
	WorkspaceID  int64
	API          ChatAPI
	Store        SessionStore
	Detector     ChangeDetector
	Notifier     Notifier
	PollInterval time.Duration
	OnUpdate     func(Snapshot)
}

// Conversation binds one channel and workspace to a session store, a
// history poller and a message composer. The server is the source of truth;
// the local list is replaced wholesale whenever a poll detects a change.
type Conversation struct {
	ch          Channel
	workspaceID int64
	api         ChatAPI
	store       SessionStore
	detector    ChangeDetector
	notifier    Notifier
	onUpdate    func(Snapshot)
	poller      *Poller

	mu        sync.Mutex
	ctx       context.Context
	sessionID string
	messages  []ChatMessage
	draft     string
	sending   bool
	closed    bool

	// oversized is the session whose history last exceeded the read limit
	oversized string
}

// NewConversation creates a conversation in the NoSession state
func NewConversation(opts ConversationOptions) (*Conversation, error) {
	if opts.API == nil {
		return nil, errors.New("chat API required")
	}
	if opts.Store == nil {
		return nil, errors.New("session store required")
	}
	if opts.Channel.Name == "" {
		return nil, errors.New("channel required")
	}
	detector := opts.Detector
	if detector == nil {
		detector = LastIDDetector{}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = opts.Channel.PollInterval
	}

	c := &Conversation{
		ch:          opts.Channel,
		workspaceID: opts.WorkspaceID,
		api:         opts.API,
		store:       opts.Store,
		detector:    detector,
		notifier:    notifier,
		onUpdate:    opts.OnUpdate,
		ctx:         context.Background(),
	}
	c.poller = NewPoller(interval, func(ctx context.Context, sessionID string) {
		_ = c.refresh(ctx, sessionID)
	})
	return c, nil
}

// Open restores a stored session, if any, fetches its history right away
// and starts polling. ctx bounds the poller's lifetime.
func (c *Conversation) Open(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	sessionID, ok, err := c.store.Load(ctx, c.ch.Name, c.workspaceID)
	if err != nil {
		return err
	}
	if !ok {
		LogDebug("No stored %s session for workspace %d", c.ch.Name, c.workspaceID)
		c.emit()
		return nil
	}

	LogDebug("Resuming %s session %s for workspace %d", c.ch.Name, sessionID, c.workspaceID)
	c.switchSession(ctx, sessionID)
	return nil
}

// Attach persists sessionID for the workspace and switches to it
func (c *Conversation) Attach(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrNoSession
	}
	if err := c.store.Save(ctx, c.ch.Name, c.workspaceID, sessionID); err != nil {
		return err
	}
	c.switchSession(c.pollContext(), sessionID)
	return nil
}

// Submit sends text: it starts a session when none is held, otherwise it
// appends to the current one. Blank text is rejected without a request.
// On failure the state is unchanged and the draft keeps the text.
func (c *Conversation) Submit(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("conversation closed")
	}
	if c.sending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	c.sending = true
	c.draft = ""
	sessionID := c.sessionID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	if sessionID == "" {
		return c.start(ctx, text, trimmed)
	}
	return c.send(ctx, sessionID, text, trimmed)
}

func (c *Conversation) start(ctx context.Context, text, trimmed string) error {
	if !c.ch.CanStart() {
		c.fail(text, "Pick a conversation from the inbox first", ErrStartUnsupported)
		return ErrStartUnsupported
	}

	session, err := c.api.StartSession(ctx, c.ch, c.workspaceID, trimmed)
	if err != nil {
		c.fail(text, "Could not start the conversation. Please try again.", err)
		return err
	}

	if err := c.store.Save(ctx, c.ch.Name, c.workspaceID, session.ID); err != nil {
		// The session exists server-side; it still works for this run.
		LogWarn("Failed to remember session %s: %v", session.ID, err)
	}
	LogInfo("Started %s session %s for workspace %d", c.ch.Name, session.ID, c.workspaceID)
	c.switchSession(c.pollContext(), session.ID)
	return nil
}

func (c *Conversation) send(ctx context.Context, sessionID, text, trimmed string) error {
	msg, err := c.api.SendMessage(ctx, c.ch, sessionID, trimmed)
	if err != nil {
		if IsSessionGone(err) {
			c.dropSession(ctx, sessionID)
		}
		c.fail(text, "Message not sent. Please try again.", err)
		return err
	}

	if msg == nil {
		return c.refresh(ctx, sessionID)
	}

	c.mu.Lock()
	if c.sessionID != sessionID || containsMessage(c.messages, msg.ID) {
		c.mu.Unlock()
		return nil
	}
	c.messages = append(append(make([]ChatMessage, 0, len(c.messages)+1), c.messages...), *msg)
	c.mu.Unlock()
	c.emit()
	return nil
}

// fail restores the draft and raises a one-shot notice
func (c *Conversation) fail(text, notice string, err error) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
	LogWarn("%s session for workspace %d: %v", c.ch.Name, c.workspaceID, err)
	c.notifier.Notify(NoticeError, notice)
}

// switchSession makes sessionID current, shows its history immediately and
// restarts the poller on it
func (c *Conversation) switchSession(ctx context.Context, sessionID string) {
	c.poller.Stop()

	c.mu.Lock()
	c.sessionID = sessionID
	c.messages = nil
	c.mu.Unlock()
	c.emit()

	if err := c.refresh(ctx, sessionID); err != nil && IsSessionGone(err) {
		return
	}

	c.mu.Lock()
	stillCurrent := c.sessionID == sessionID && !c.closed
	c.mu.Unlock()
	if stillCurrent {
		c.poller.Start(ctx, sessionID)
	}
}

// Refresh fetches history for the current session now
func (c *Conversation) Refresh(ctx context.Context) error {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID == "" {
		return ErrNoSession
	}
	return c.refresh(ctx, sessionID)
}

// refresh applies one history fetch. Results for a session that is no
// longer current are discarded. Read failures are logged, not surfaced,
// except a missing session, which drops back to NoSession.
func (c *Conversation) refresh(ctx context.Context, sessionID string) error {
	msgs, err := c.api.History(ctx, c.ch, sessionID)
	if err != nil {
		if IsSessionGone(err) {
			c.dropSession(ctx, sessionID)
			return err
		}
		LogWarn("History fetch for session %s failed: %v", sessionID, err)
		if errors.Is(err, ErrResponseTooLarge) {
			c.noticeOversized(sessionID)
		}
		return err
	}
	if err := ValidateHistory(msgs); err != nil {
		LogWarn("Session %s history: %v", sessionID, err)
	}

	c.mu.Lock()
	if c.closed || c.sessionID != sessionID {
		c.mu.Unlock()
		LogDebug("Discarding stale history for session %s", sessionID)
		return nil
	}
	changed := c.messages == nil || c.detector.Changed(c.messages, msgs)
	if changed {
		c.messages = msgs
	}
	c.mu.Unlock()

	if changed {
		c.emit()
	}
	return nil
}

// dropSession forgets a session the server no longer resolves
// noticeOversized warns once per session that its history exceeds the
// client read limit
func (c *Conversation) noticeOversized(sessionID string) {
	c.mu.Lock()
	first := c.oversized != sessionID
	c.oversized = sessionID
	c.mu.Unlock()
	if first {
		c.notifier.Notify(NoticeWarn, "This conversation is too long to refresh. Raise max_response_bytes to keep it updated.")
	}
}

func (c *Conversation) dropSession(ctx context.Context, sessionID string) {
	c.mu.Lock()
	if c.sessionID != sessionID {
		c.mu.Unlock()
		return
	}
	c.sessionID = ""
	c.messages = nil
	c.mu.Unlock()

	c.poller.Stop()
	if err := c.store.Clear(ctx, c.ch.Name, c.workspaceID); err != nil {
		LogWarn("Failed to clear stored session %s: %v", sessionID, err)
	}
	LogInfo("Session %s is no longer available", sessionID)
	c.notifier.Notify(NoticeWarn, "This conversation has ended. Send a message to start a new one.")
	c.emit()
}

// Close stops polling. Results of fetches still in flight are discarded.
func (c *Conversation) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.poller.Stop()
}

// Wait blocks until the poll loop has exited after Close
func (c *Conversation) Wait() {
	c.poller.Wait()
}

func (c *Conversation) pollContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// State returns the composer state
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" {
		return NoSession
	}
	return HasSession
}

// SessionID returns the current session id, or empty
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns a copy of the rendered history
func (c *Conversation) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatMessage(nil), c.messages...)
}

// Draft returns text kept after a failed submit
func (c *Conversation) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Sending reports whether a submit is awaiting a response
func (c *Conversation) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Channel returns the channel the conversation runs on
func (c *Conversation) Channel() Channel { return c.ch }

// WorkspaceID returns the parent workspace id
func (c *Conversation) WorkspaceID() int64 { return c.workspaceID }

// Snapshot returns the current view
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	state := NoSession
	if c.sessionID != "" {
		state = HasSession
	}
	return Snapshot{
		State:     state,
		SessionID: c.sessionID,
		Messages:  append([]ChatMessage(nil), c.messages...),
	}
}

func (c *Conversation) emit() {
	if c.onUpdate == nil {
		return
	}
	c.onUpdate(c.Snapshot())
}
