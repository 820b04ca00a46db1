package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tombotower/tower-server/internal/domain"
	"github.com/tombotower/tower-server/internal/store"
)

// sessionColumns is the ordered list of columns selected in session queries.
// Must match the scan order in scanSession.
const sessionColumns = `id, user_id, auth_hash, flashes, created_at, expires_at`

// scanSession scans a sql.Row (or sql.Rows via its Scan method) into a domain.Session.
func scanSession(scanner interface{ Scan(dest ...any) error }) (*domain.Session, error) {
	var (
		sess      domain.Session
		userID    sql.NullInt64
		flashes   string
		createdAt string
		expiresAt string
	)

	err := scanner.Scan(&sess.ID, &userID, &sess.AuthHash, &flashes, &createdAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	sess.UserID = nullInt64(userID)

	if flashes != "" {
		if err := json.Unmarshal([]byte(flashes), &sess.Flashes); err != nil {
			return nil, fmt.Errorf("decode flashes: %w", err)
		}
	}

	sess.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	sess.ExpiresAt, err = parseTime(expiresAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// encodeFlashes serializes the flash list for storage, never as SQL NULL.
func encodeFlashes(flashes []domain.Flash) (string, error) {
	if flashes == nil {
		flashes = []domain.Flash{}
	}
	data, err := json.Marshal(flashes)
	if err != nil {
		return "", fmt.Errorf("encode flashes: %w", err)
	}
	return string(data), nil
}

// CreateSession inserts a new session row.
// Returns store.ErrAlreadyExists if the session ID already exists.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	flashes, err := encodeFlashes(sess.Flashes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, auth_hash, flashes, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID,
		int64Null(sess.UserID),
		sess.AuthHash,
		flashes,
		formatTime(sess.CreatedAt),
		formatTime(sess.ExpiresAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetSession retrieves a session by ID.
// Returns store.ErrNotFound if the session does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateSession performs a full row update on an existing session.
// Returns store.ErrNotFound if the session does not exist.
func (s *Store) UpdateSession(ctx context.Context, sess *domain.Session) error {
	flashes, err := encodeFlashes(sess.Flashes)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			user_id = ?,
			auth_hash = ?,
			flashes = ?,
			created_at = ?,
			expires_at = ?
		WHERE id = ?`,
		int64Null(sess.UserID),
		sess.AuthHash,
		flashes,
		formatTime(sess.CreatedAt),
		formatTime(sess.ExpiresAt),
		sess.ID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteSession performs a hard delete of a session by ID.
// Returns store.ErrNotFound if the session does not exist.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteSessionsByUser removes every session belonging to a user.
func (s *Store) DeleteSessionsByUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

// DeleteExpiredSessions deletes all sessions where expires_at is in the past.
// Returns the number of sessions deleted.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	now := formatTime(time.Now())

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
