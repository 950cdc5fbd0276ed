package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database for testing
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS chatSessionKV (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create chatSessionKV table: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateTestDB creates a test database with stored sessions for two
// workspaces and one malformed row
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	rows := []struct {
		key   string
		value string
	}{
		{
			key:   "chatSession:v1:customer:42",
			value: `{"sessionId":"abc-123","savedAt":"2025-03-01T09:00:00Z"}`,
		},
		{
			key:   "chatSession:v1:ai:42",
			value: `{"sessionId":"ai-777","savedAt":"2025-03-01T10:00:00Z"}`,
		},
		{
			key:   "chatSession:v1:customer:7",
			value: `{"sessionId":"def-456","savedAt":"2025-03-02T09:00:00Z"}`,
		},
		{
			key:   "chatSession:v1:customer:notanumber",
			value: `{"sessionId":"broken"}`,
		},
	}

	stmt, err := db.Prepare("INSERT INTO chatSessionKV (key, value) VALUES (?, ?)")
	if err != nil {
		t.Fatalf("Failed to prepare insert statement: %v", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.key, row.value); err != nil {
			t.Fatalf("Failed to insert %s: %v", row.key, err)
		}
	}

	return db
}

// InsertKV inserts a raw row into chatSessionKV
func InsertKV(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	if _, err := db.Exec("INSERT INTO chatSessionKV (key, value) VALUES (?, ?)", key, value); err != nil {
		t.Fatalf("Failed to insert %s: %v", key, err)
	}
}
