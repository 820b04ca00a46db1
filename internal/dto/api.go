package dto

import "github.com/tombotower/tower-server/internal/domain"

// PromptListResponse is the /api/prompts payload consumed by the browser
// extension.
type PromptListResponse struct {
	Prompts []domain.UserPrompt `json:"prompts"`
}

// ProfileResponse is the /api/profile payload.
type ProfileResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ErrorResponse is the JSON error body used by the API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
