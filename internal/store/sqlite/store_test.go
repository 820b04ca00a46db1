package sqlite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(dbPath, logger)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })
	return s
}

// createTestUser inserts a user with a placeholder hash and returns its id.
func createTestUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()

	id, err := s.CreateUser(context.Background(), username, username+"@example.com", "$argon2id$test")
	require.NoError(t, err)
	return id
}

// insertPromptAt inserts a prompt with an explicit creation time, bypassing
// CreatePrompt so tests can control feed ordering and the window cutoff.
func insertPromptAt(t *testing.T, s *Store, userID int64, title string, createdAt time.Time) int64 {
	t.Helper()

	res, err := s.db.Exec(`
		INSERT INTO prompts (user_id, title, description, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, title, "", "content of "+title, formatTime(createdAt),
	)
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestOpenAppliesSchema(t *testing.T) {
	s := newTestStore(t)

	// Every table the app touches should exist after Open.
	for _, table := range []string{"users", "prompts", "tags", "prompt_tags", "prompt_stars", "sessions"} {
		var name string
		err := s.db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s1, err := Open(dbPath, logger)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Reopening an existing database must not fail on the schema.
	s2, err := Open(dbPath, logger)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Now().UTC()

	parsed, err := parseTime(formatTime(now))
	require.NoError(t, err)
	require.True(t, now.Equal(parsed), fmt.Sprintf("want %v, got %v", now, parsed))
}
