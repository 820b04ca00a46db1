package domain

import "time"

// Prompt is a titled block of reusable text authored by a user.
// UserID is nil for legacy rows imported before accounts existed.
// ParentPromptID is a lineage back-pointer; no fork flow exists yet.
type Prompt struct {
	ID             int64
	UserID         *int64
	ParentPromptID *int64
	Title          string
	Description    string
	Content        string
	CreatedAt      time.Time
}

// FeedRow is one aggregated feed entry: the prompt joined with its author,
// star count and tag set, assembled in a single query.
type FeedRow struct {
	ID             int64
	Title          string
	Description    string
	AuthorID       *int64
	AuthorUsername string
	CreatedAt      time.Time
	StarCount      int64
	Tags           []Tag
	// IsStarred is nil for anonymous viewers.
	IsStarred *bool
}

// PromptRow is a FeedRow plus the full content, used by the detail page.
type PromptRow struct {
	FeedRow
	Content string
}

// UserPrompt is the trimmed shape served to the browser extension.
type UserPrompt struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
