package sqlite

import (
	"context"
	"fmt"

	"github.com/tombotower/tower-server/internal/domain"
)

// seedTags is the fixed bootstrap vocabulary. Inserted if missing on every
// startup; nothing else writes to tags at runtime.
var seedTags = []domain.Tag{
	{Name: "Writing", Kind: "category", BgColor: "F0DFFF", TextColor: "46006E"},
	{Name: "Brainstorming", Kind: "category", BgColor: "FFEBCD", TextColor: "783C00"},
	{Name: "Role-playing", Kind: "category", BgColor: "E0FFF5", TextColor: "006450"},
	{Name: "Summary", Kind: "category", BgColor: "DAEDFF", TextColor: "00468C"},
	{Name: "System", Kind: "category", BgColor: "FFF5C8", TextColor: "786400"},
	{Name: "Games", Kind: "category", BgColor: "D0F2FF", TextColor: "005A78"},
}

// Seed idempotently inserts the bootstrap tag list, keyed on name.
func (s *Store) Seed(ctx context.Context) error {
	for _, t := range seedTags {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tags (name, kind, bg_color, text_color)
			SELECT ?, ?, ?, ?
			WHERE NOT EXISTS (SELECT 1 FROM tags WHERE name = ?)`,
			t.Name, t.Kind, t.BgColor, t.TextColor, t.Name,
		)
		if err != nil {
			return fmt.Errorf("seed tag %q: %w", t.Name, err)
		}
	}

	s.logger.Debug("Tag seed complete", "tags", len(seedTags))
	return nil
}
