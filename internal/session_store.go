package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SessionStore remembers which session a workspace is tied to on this device.
// Keys are scoped by channel and workspace id; a second Save overwrites.
type SessionStore interface {
	Load(ctx context.Context, channel string, workspaceID int64) (string, bool, error)
	Save(ctx context.Context, channel string, workspaceID int64, sessionID string) error
	Clear(ctx context.Context, channel string, workspaceID int64) error
	List(ctx context.Context) ([]StoredSession, error)
}

// StoredSession is one persisted channel/workspace → session association
type StoredSession struct {
	Channel     string    `json:"channel" yaml:"channel"`
	WorkspaceID int64     `json:"workspace_id" yaml:"workspace_id"`
	SessionID   string    `json:"session_id" yaml:"session_id"`
	SavedAt     time.Time `json:"saved_at" yaml:"saved_at"`
}

// storeKeyPrefix carries a schema version so the value format can change later
const storeKeyPrefix = "chatSession:v1:"

// SessionKey builds the namespaced key for a channel and workspace
func SessionKey(channel string, workspaceID int64) string {
	return storeKeyPrefix + channel + ":" + strconv.FormatInt(workspaceID, 10)
}

// ParseSessionKey splits a key built by SessionKey
func ParseSessionKey(key string) (string, int64, error) {
	if !strings.HasPrefix(key, storeKeyPrefix) {
		return "", 0, fmt.Errorf("invalid session key format: %s", key)
	}
	parts := strings.Split(strings.TrimPrefix(key, storeKeyPrefix), ":")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, fmt.Errorf("invalid session key format: %s", key)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid workspace id in key %s: %w", key, err)
	}
	return parts[0], id, nil
}

type storedValue struct {
	SessionID string    `json:"sessionId"`
	SavedAt   time.Time `json:"savedAt"`
}

// SQLiteSessionStore persists associations in the chatSessionKV table
type SQLiteSessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteSessionStore creates a store over an opened database
func NewSQLiteSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db, now: time.Now}
}

func (s *SQLiteSessionStore) Load(ctx context.Context, channel string, workspaceID int64) (string, bool, error) {
	key := SessionKey(channel, workspaceID)
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM chatSessionKV WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StoreError{Op: "load", Key: key, Err: err}
	}
	var v storedValue
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return "", false, &StoreError{Op: "load", Key: key, Err: err}
	}
	if v.SessionID == "" {
		return "", false, nil
	}
	return v.SessionID, true, nil
}

func (s *SQLiteSessionStore) Save(ctx context.Context, channel string, workspaceID int64, sessionID string) error {
	key := SessionKey(channel, workspaceID)
	value, err := json.Marshal(storedValue{SessionID: sessionID, SavedAt: s.now().UTC()})
	if err != nil {
		return &StoreError{Op: "save", Key: key, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO chatSessionKV (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(value))
	if err != nil {
		return &StoreError{Op: "save", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteSessionStore) Clear(ctx context.Context, channel string, workspaceID int64) error {
	key := SessionKey(channel, workspaceID)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chatSessionKV WHERE key = ?", key); err != nil {
		return &StoreError{Op: "clear", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteSessionStore) List(ctx context.Context) ([]StoredSession, error) {
	pairs, err := QueryKV(ctx, s.db, storeKeyPrefix+"%")
	if err != nil {
		return nil, &StoreError{Op: "list", Key: storeKeyPrefix, Err: err}
	}

	out := make([]StoredSession, 0, len(pairs))
	for _, pair := range pairs {
		channel, workspaceID, err := ParseSessionKey(pair.Key)
		if err != nil {
			LogDebug("Skipping malformed store key %s: %v", pair.Key, err)
			continue
		}
		var v storedValue
		if err := json.Unmarshal([]byte(pair.Value), &v); err != nil {
			LogDebug("Skipping unreadable store value for %s: %v", pair.Key, err)
			continue
		}
		out = append(out, StoredSession{
			Channel:     channel,
			WorkspaceID: workspaceID,
			SessionID:   v.SessionID,
			SavedAt:     v.SavedAt,
		})
	}
	sortStored(out)
	return out, nil
}

// MemorySessionStore keeps associations for the life of the process
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]StoredSession
}

// NewMemorySessionStore creates an empty in-memory store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]StoredSession)}
}

func (m *MemorySessionStore) Load(_ context.Context, channel string, workspaceID int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[SessionKey(channel, workspaceID)]
	if !ok {
		return "", false, nil
	}
	return e.SessionID, true, nil
}

func (m *MemorySessionStore) Save(_ context.Context, channel string, workspaceID int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[SessionKey(channel, workspaceID)] = StoredSession{
		Channel:     channel,
		WorkspaceID: workspaceID,
		SessionID:   sessionID,
		SavedAt:     time.Now().UTC(),
	}
	return nil
}

func (m *MemorySessionStore) Clear(_ context.Context, channel string, workspaceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, SessionKey(channel, workspaceID))
	return nil
}

func (m *MemorySessionStore) List(_ context.Context) ([]StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StoredSession, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sortStored(out)
	return out, nil
}

func sortStored(s []StoredSession) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Channel != s[j].Channel {
			return s[i].Channel < s[j].Channel
		}
		return s[i].WorkspaceID < s[j].WorkspaceID
	})
}
