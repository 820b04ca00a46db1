package api

import (
	"net/http"

	"github.com/tombotower/tower-server/internal/dto"
	"github.com/tombotower/tower-server/internal/http/response"
	"github.com/tombotower/tower-server/internal/session"
)

// handleAPIPrompts returns the caller's prompts for the browser extension.
// The extension predates proper status handling, so the unauthenticated
// case is a 200 with an error body, not a 401.
// GET /api/prompts
func (s *Server) handleAPIPrompts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	if st.User == nil {
		response.JSON(w, http.StatusOK, dto.ErrorResponse{Error: "Not authenticated"}, s.logger)
		return
	}

	prompts, err := s.store.ListUserPrompts(ctx, st.User.ID)
	if err != nil {
		s.logger.Error("Failed to list user prompts", "user_id", st.User.ID, "error", err)
		response.Error(w, http.StatusInternalServerError, "Database error", s.logger)
		return
	}

	response.JSON(w, http.StatusOK, dto.PromptListResponse{Prompts: prompts}, s.logger)
}

// handleAPIProfile returns the caller's id and email, or an empty object
// with a 404 when nobody is logged in.
// GET /api/profile
func (s *Server) handleAPIProfile(w http.ResponseWriter, r *http.Request) {
	st := session.FromContext(r.Context())

	if st.User == nil {
		response.JSON(w, http.StatusNotFound, struct{}{}, s.logger)
		return
	}

	response.JSON(w, http.StatusOK, dto.ProfileResponse{
		ID:    st.User.ID,
		Email: st.User.Email,
	}, s.logger)
}
