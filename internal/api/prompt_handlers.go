package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tombotower/tower-server/internal/dto"
	"github.com/tombotower/tower-server/internal/session"
	"github.com/tombotower/tower-server/internal/store"
	"github.com/tombotower/tower-server/internal/store/sqlite"
)

// feedData is the template payload for the feed page.
type feedData struct {
	Cards   []dto.PromptCard
	Page    int
	HasMore bool
}

func (d feedData) PrevPage() int { return d.Page - 1 }
func (d feedData) NextPage() int { return d.Page + 1 }

// starData is the template payload for the star button fragment. Field
// names match dto.PromptCard so the same template renders both.
type starData struct {
	ID        int64
	StarCount int64
	Starred   bool
}

// viewerID returns the logged-in user's id, or nil for anonymous visitors.
func viewerID(st *session.State) *int64 {
	if st.User == nil {
		return nil
	}
	return &st.User.ID
}

// promptID parses the {promptID} route parameter.
func promptID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "promptID"), 10, 64)
}

// handleFeed renders the public feed: recent prompts, newest first.
// GET / and GET /dashboard
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 1 {
		page = p
	}
	offset := (page - 1) * sqlite.DefaultFeedLimit

	rows, err := s.store.ListFeed(ctx, viewerID(st), offset, sqlite.DefaultWindowDays, sqlite.DefaultFeedLimit)
	if err != nil {
		s.logger.Error("Failed to list feed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	cards := make([]dto.PromptCard, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, dto.NewPromptCard(row))
	}

	s.render(w, r, "feed.html", feedData{
		Cards:   cards,
		Page:    page,
		HasMore: len(rows) == sqlite.DefaultFeedLimit,
	})
}

// handleNewPromptForm renders the prompt creation form.
// GET /prompt/new
func (s *Server) handleNewPromptForm(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context())
	if err != nil {
		s.logger.Error("Failed to list tags", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "new_prompt.html", tags)
}

// handleCreatePrompt creates a prompt from the submitted form.
// POST /prompt/new
func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	title := r.PostFormValue("prompt-title")
	content := r.PostFormValue("prompt-text")
	description := r.PostFormValue("prompt-description")
	tagIDs := parseTagList(r.PostForm["prompt-tags"])

	id, err := s.store.CreatePrompt(ctx, st.User.ID, title, description, content)
	if err != nil {
		var storeErr *store.Error
		if errors.As(err, &storeErr) && storeErr.Code == http.StatusBadRequest {
			s.flash(ctx, w, st, "error", storeErr.Message)
			http.Redirect(w, r, "/prompt/new", http.StatusSeeOther)
			return
		}
		s.logger.Error("Failed to create prompt", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if len(tagIDs) > 0 {
		if err := s.store.SetPromptTags(ctx, id, st.User.ID, tagIDs); err != nil {
			s.logger.Warn("Failed to tag new prompt", "prompt_id", id, "error", err)
			s.flash(ctx, w, st, "error", "Prompt created, but its tags could not be saved.")
			http.Redirect(w, r, "/prompt/new", http.StatusSeeOther)
			return
		}
	}

	s.flash(ctx, w, st, "success", "Prompt created successfully!")
	http.Redirect(w, r, "/prompt/new", http.StatusSeeOther)
}

// handlePromptDetail renders a single prompt with its content.
// GET /prompt/{promptID}
func (s *Server) handlePromptDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	id, err := promptID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	row, err := s.store.GetPrompt(ctx, id, viewerID(st))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("Failed to get prompt", "prompt_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "detail.html", dto.NewPromptDetail(row))
}

// handlePromptRaw serves the bare prompt text for copy-paste and curl.
// GET /prompt/{promptID}/raw
func (s *Server) handlePromptRaw(w http.ResponseWriter, r *http.Request) {
	id, err := promptID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	content, err := s.store.GetPromptContent(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("Failed to get prompt content", "prompt_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(content))
}

// tagEditData is the template payload for the tag editor fragment.
type tagEditData struct {
	PromptID int64
	Options  []tagOption
}

type tagOption struct {
	ID      int64
	Name    string
	Checked bool
}

// handleTagEditForm renders the tag editor for a prompt. Only the author
// may edit tags.
// GET /prompt/{promptID}/tags/edit
func (s *Server) handleTagEditForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	id, err := promptID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	row, err := s.store.GetPrompt(ctx, id, viewerID(st))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("Failed to get prompt", "prompt_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if st.User == nil || row.AuthorID == nil || *row.AuthorID != st.User.ID {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tags, err := s.store.ListTags(ctx)
	if err != nil {
		s.logger.Error("Failed to list tags", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	attached, err := s.store.GetPromptTags(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get prompt tags", "prompt_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	current := make(map[int64]bool, len(attached))
	for _, t := range attached {
		current[t.ID] = true
	}

	data := tagEditData{PromptID: id}
	for _, t := range tags {
		data.Options = append(data.Options, tagOption{ID: t.ID, Name: t.Name, Checked: current[t.ID]})
	}

	s.renderPartial(w, "tag_edit.html", data)
}

// handleSetTags replaces a prompt's tag set from the editor form. Only the
// author may edit tags; anyone else gets a 401.
// POST /prompt/{promptID}/tags
func (s *Server) handleSetTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	id, err := promptID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if st.User == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	tagIDs := make([]int64, 0, len(r.PostForm["tags"]))
	for _, raw := range r.PostForm["tags"] {
		tagID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		tagIDs = append(tagIDs, tagID)
	}

	err = s.store.SetPromptTags(ctx, id, st.User.ID, tagIDs)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, store.ErrForbidden):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	case err != nil:
		var storeErr *store.Error
		if errors.As(err, &storeErr) && storeErr.Code == http.StatusBadRequest {
			http.Error(w, storeErr.Message, http.StatusBadRequest)
			return
		}
		s.logger.Error("Failed to set tags", "prompt_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if r.Header.Get("HX-Request") != "" {
		row, err := s.store.GetPrompt(ctx, id, viewerID(st))
		if err != nil {
			s.logger.Error("Failed to reload prompt", "prompt_id", id, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.renderPartial(w, "tags.html", dto.NewPromptCard(&row.FeedRow))
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/prompt/%d", id), http.StatusSeeOther)
}

// handleToggleStar flips the viewer's star on a prompt. POST and DELETE are
// deliberately the same toggle so a stale button can't double-count.
// POST|DELETE /prompt/{promptID}/star
func (s *Server) handleToggleStar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	id, err := promptID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	starred, err := s.store.ToggleStar(ctx, id, st.User.ID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("Failed to toggle star", "prompt_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if r.Header.Get("HX-Request") != "" {
		row, err := s.store.GetPrompt(ctx, id, viewerID(st))
		if err != nil {
			s.logger.Error("Failed to reload prompt", "prompt_id", id, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.renderPartial(w, "star.html", starData{
			ID:        id,
			StarCount: row.StarCount,
			Starred:   starred,
		})
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/prompt/%d", id), http.StatusSeeOther)
}

// parseTagList parses the tag ids submitted by the new prompt form. Both
// repeated checkbox values and a single comma-separated string are accepted;
// malformed entries are dropped rather than failing the post.
func parseTagList(values []string) []int64 {
	var ids []int64
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids
}
