// Package dto provides view models for templates and API responses.
//
// DTOs carry denormalized fields for immediate rendering: author names,
// star counts, and resolved tags come pre-joined from the store's feed
// queries rather than being fetched per row.
package dto

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tombotower/tower-server/internal/domain"
)

// PromptCard is the template-facing representation of a feed entry.
type PromptCard struct {
	domain.FeedRow

	// AuthorName is AuthorUsername with a fallback for deleted accounts.
	AuthorName string
	// Starred is IsStarred flattened for template conditionals; always
	// false for anonymous viewers.
	Starred bool
}

// NewPromptCard denormalizes a feed row for rendering.
func NewPromptCard(row *domain.FeedRow) PromptCard {
	card := PromptCard{FeedRow: *row, AuthorName: row.AuthorUsername}
	if card.AuthorName == "" {
		card.AuthorName = "anonymous"
	}
	if row.IsStarred != nil {
		card.Starred = *row.IsStarred
	}
	return card
}

// PromptDetail is the template-facing representation of a full prompt.
type PromptDetail struct {
	PromptCard

	Content         string
	EstimatedTokens int
}

// NewPromptDetail denormalizes a full prompt row for rendering.
func NewPromptDetail(row *domain.PromptRow) PromptDetail {
	return PromptDetail{
		PromptCard:      NewPromptCard(&row.FeedRow),
		Content:         row.Content,
		EstimatedTokens: EstimateTokens(row.Content),
	}
}

// EstimateTokens approximates the LLM token count of a prompt: the average
// of a character-based estimate (4 chars per token) and a word-based one.
func EstimateTokens(content string) int {
	byChars := utf8.RuneCountInString(content) / 4
	byWords := len(strings.Fields(content))
	return (byChars + byWords) / 2
}

// FormatDate renders a timestamp for the feed and detail pages.
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
