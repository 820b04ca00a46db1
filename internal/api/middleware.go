package api

import (
	"net/http"
	"net/url"

	"github.com/tombotower/tower-server/internal/session"
)

// withSession resolves the request's session once and stashes the state in
// the request context for every handler downstream.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := s.sessions.Load(r.Context(), w, r)
		if err != nil {
			s.logger.Error("Failed to load session", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		ctx := session.NewContext(r.Context(), st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth redirects anonymous visitors to the login page, carrying the
// original URL so login can send them back.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := session.FromContext(r.Context())
		if !st.IsAuthenticated() {
			loginURL := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}
