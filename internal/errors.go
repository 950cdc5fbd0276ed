package internal

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionNotFound reports that the server no longer resolves a session id.
	ErrSessionNotFound = errors.New("chat session not found")
	// ErrUnauthorized reports a rejected or expired bearer credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmptyMessage is returned for blank submissions; no request is made.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInFlight is returned when a submit is already awaiting a response.
	ErrSendInFlight = errors.New("a message is already being sent")
	// ErrNoSession is returned by operations that need an attached session.
	ErrNoSession = errors.New("no active chat session")
	// ErrStartUnsupported is returned when a channel cannot open new sessions.
	ErrStartUnsupported = errors.New("channel cannot start sessions")
	// ErrResponseTooLarge is returned when a response body exceeds the client's read limit.
	ErrResponseTooLarge = errors.New("response too large")
)

// APIError represents a failed call to the chat API
type APIError struct {
	Op         string // "start-session", "send-message", "history", "list-sessions"
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.StatusCode != 0 {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Err != nil {
		if msg == "" {
			return fmt.Sprintf("api error [%s]: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("api error [%s] status=%d %s: %v", e.Op, e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("api error [%s] status=%d %s", e.Op, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StoreError represents errors accessing the local session store
type StoreError struct {
	Op  string // "open", "load", "save", "clear", "list"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s=%q]: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// IsSessionGone reports whether err means the held session id is no longer valid.
func IsSessionGone(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
