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

// Feed defaults.
const (
	DefaultWindowDays = 30
	DefaultFeedLimit  = 20
)

// feedSelect is the aggregation shared by ListFeed and GetPrompt: one query
// over prompts joined with users, left-joined through prompt_tags to tags,
// grouped by prompt. Tags arrive as a JSON array per row; star_count and the
// viewer's star come from correlated subqueries so the tag join cannot
// inflate them.
const feedSelect = `
	SELECT p.id, p.title, p.description, p.user_id, u.username, p.created_at,
	       (SELECT COUNT(*) FROM prompt_stars ps WHERE ps.prompt_id = p.id) AS star_count,
	       json_group_array(json_object(
	           'id', t.id, 'name', t.name, 'kind', t.kind,
	           'bg_color', t.bg_color, 'text_color', t.text_color)) AS tags,
	       EXISTS(SELECT 1 FROM prompt_stars pv
	              WHERE pv.prompt_id = p.id AND pv.user_id = ?) AS is_starred`

const feedJoins = `
	FROM prompts p
	LEFT JOIN users u ON u.id = p.user_id
	LEFT JOIN prompt_tags pt ON pt.prompt_id = p.id
	LEFT JOIN tags t ON t.id = pt.tag_id`

// tagJSON mirrors the json_object shape emitted by the feed aggregation.
// A tagless prompt still produces one joined row of NULLs, so ID is a
// pointer: null-id elements are placeholders, not tags.
type tagJSON struct {
	ID        *int64  `json:"id"`
	Name      *string `json:"name"`
	Kind      *string `json:"kind"`
	BgColor   *string `json:"bg_color"`
	TextColor *string `json:"text_color"`
}

// decodeTags normalizes the aggregated JSON column into a tag list.
// NULL, "[]" and placeholder-only arrays all become an empty slice.
func decodeTags(raw sql.NullString) ([]domain.Tag, error) {
	tags := []domain.Tag{}
	if !raw.Valid || raw.String == "" {
		return tags, nil
	}

	var elems []tagJSON
	if err := json.Unmarshal([]byte(raw.String), &elems); err != nil {
		return nil, fmt.Errorf("decode tag array: %w", err)
	}
	for _, e := range elems {
		if e.ID == nil {
			continue
		}
		t := domain.Tag{ID: *e.ID}
		if e.Name != nil {
			t.Name = *e.Name
		}
		if e.Kind != nil {
			t.Kind = *e.Kind
		}
		if e.BgColor != nil {
			t.BgColor = *e.BgColor
		}
		if e.TextColor != nil {
			t.TextColor = *e.TextColor
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// scanFeedRow scans one aggregated row. The viewer flag decides whether the
// is_starred column is meaningful; anonymous viewers get a nil IsStarred.
func scanFeedRow(scanner interface{ Scan(dest ...any) error }, hasViewer bool, extra ...any) (*domain.FeedRow, error) {
	var (
		row       domain.FeedRow
		authorID  sql.NullInt64
		username  sql.NullString
		createdAt string
		tagsRaw   sql.NullString
		starred   bool
	)

	dest := []any{
		&row.ID, &row.Title, &row.Description, &authorID, &username,
		&createdAt, &row.StarCount, &tagsRaw, &starred,
	}
	dest = append(dest, extra...)

	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	row.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	row.AuthorID = nullInt64(authorID)
	if username.Valid {
		row.AuthorUsername = username.String
	}
	if hasViewer {
		row.IsStarred = &starred
	}

	row.Tags, err = decodeTags(tagsRaw)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// viewerParam is the value bound to the is_starred subquery. User ids start
// at 1, so 0 never matches a star row for anonymous viewers.
func viewerParam(viewer *int64) int64 {
	if viewer == nil {
		return 0
	}
	return *viewer
}

// ListFeed returns the public feed: prompts created inside the window,
// newest first, each carrying author, star count and tag set. One query,
// no per-prompt follow-ups.
func (s *Store) ListFeed(ctx context.Context, viewer *int64, offset, windowDays, limit int) ([]*domain.FeedRow, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	cutoff := formatTime(time.Now().AddDate(0, 0, -windowDays))

	rows, err := s.db.QueryContext(ctx,
		feedSelect+feedJoins+`
		WHERE p.created_at >= ?
		GROUP BY p.id
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?`,
		viewerParam(viewer), cutoff, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	feed := []*domain.FeedRow{}
	for rows.Next() {
		row, err := scanFeedRow(rows, viewer != nil)
		if err != nil {
			return nil, err
		}
		feed = append(feed, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return feed, nil
}

// GetPrompt returns a single prompt in the feed aggregation shape plus its
// content. Returns store.ErrNotFound if no such prompt exists.
func (s *Store) GetPrompt(ctx context.Context, id int64, viewer *int64) (*domain.PromptRow, error) {
	row := s.db.QueryRowContext(ctx,
		feedSelect+`, p.content`+feedJoins+`
		WHERE p.id = ?
		GROUP BY p.id`,
		viewerParam(viewer), id,
	)

	var content string
	feedRow, err := scanFeedRow(row, viewer != nil, &content)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.PromptRow{FeedRow: *feedRow, Content: content}, nil
}

// GetPromptContent returns only the raw content of a prompt.
// Returns store.ErrNotFound if the prompt does not exist.
func (s *Store) GetPromptContent(ctx context.Context, id int64) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM prompts WHERE id = ?`, id).Scan(&content)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// CreatePrompt inserts a new prompt and returns its id.
// Empty title or content is rejected with store.ErrInvalidInput.
func (s *Store) CreatePrompt(ctx context.Context, authorID int64, title, description, content string) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, store.ErrInvalidInput.WithMessage("title cannot be empty")
	}
	if content == "" {
		return 0, store.ErrInvalidInput.WithMessage("content cannot be empty")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO prompts (user_id, title, description, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		authorID, title, description, content, formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert prompt: %w", err)
	}
	return res.LastInsertId()
}

// SetPromptTags replaces the full tag set of a prompt in one transaction.
// Only the prompt's author may edit its tags; duplicate ids in the input are
// collapsed and unknown tag ids abort the transaction.
func (s *Store) SetPromptTags(ctx context.Context, promptID, authorID int64, tagIDs []int64) error {
	var owner sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM prompts WHERE id = ?`, promptID).Scan(&owner)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !owner.Valid || owner.Int64 != authorID {
		return store.ErrForbidden
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM prompt_tags WHERE prompt_id = ?`, promptID); err != nil {
		return fmt.Errorf("delete prompt_tags: %w", err)
	}

	seen := make(map[int64]bool, len(tagIDs))
	for _, tagID := range tagIDs {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true

		_, err := tx.ExecContext(ctx, `
			INSERT INTO prompt_tags (prompt_id, tag_id)
			VALUES (?, ?)`,
			promptID, tagID,
		)
		if err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown tag %d", tagID))
			}
			return fmt.Errorf("insert prompt_tag: %w", err)
		}
	}

	return tx.Commit()
}

// ToggleStar flips the viewer's star on a prompt and reports the new state:
// true when the call starred the prompt, false when it removed the star.
// The composite primary key makes a racing duplicate insert a no-op.
func (s *Store) ToggleStar(ctx context.Context, promptID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM prompt_stars WHERE prompt_id = ? AND user_id = ?`,
		promptID, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prompt_stars (prompt_id, user_id) VALUES (?, ?)`,
		promptID, userID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			// Lost a race against another toggle; the star exists, which is
			// the state this call was creating anyway.
			return true, nil
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return false, store.ErrNotFound
		}
		return false, err
	}
	return true, nil
}

// ListUserPrompts returns every prompt owned by the user, newest first, in
// the trimmed shape served to the browser extension.
func (s *Store) ListUserPrompts(ctx context.Context, userID int64) ([]domain.UserPrompt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content FROM prompts
		WHERE user_id = ?
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user prompts: %w", err)
	}
	defer rows.Close()

	prompts := []domain.UserPrompt{}
	for rows.Next() {
		var p domain.UserPrompt
		if err := rows.Scan(&p.ID, &p.Title, &p.Content); err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prompts, nil
}
