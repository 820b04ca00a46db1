package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tombotower/tower-server/internal/auth"
	"github.com/tombotower/tower-server/internal/session"
)

// handleSignupForm renders the signup page.
// GET /signup
func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup.html", nil)
}

// handleSignup creates a new account from the signup form.
// POST /signup
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	_, err := s.backend.Signup(ctx, username, email, password)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, auth.ErrEmptyUsername):
			message = "Username cannot be empty."
		case errors.Is(err, auth.ErrWeakPassword):
			message = "Password must be at least 8 characters long."
		case errors.Is(err, auth.ErrUsernameTaken):
			s.logger.Warn("Signup attempt with existing username", "username", username)
			message = "Username or email already taken. Please choose another or login."
		default:
			s.logger.Error("Failed to create account", "error", err)
			message = "An unexpected error occurred. Please try again."
		}

		s.flash(ctx, w, st, "error", message)
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	s.flash(ctx, w, st, "info", "Account created successfully! You can now log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleLoginForm renders the login page.
// GET /login
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", nil)
}

// handleLogin authenticates the login form and starts a session.
// POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	next := r.PostFormValue("next")

	user, err := s.backend.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.Error("Failed to authenticate", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if user == nil {
		s.flash(ctx, w, st, "error", "Invalid credentials")

		loginURL := "/login"
		if next != "" {
			loginURL = loginURL + "?next=" + url.QueryEscape(next)
		}
		http.Redirect(w, r, loginURL, http.StatusSeeOther)
		return
	}

	if err := s.sessions.Login(ctx, w, st, user); err != nil {
		s.logger.Error("Failed to start session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.flash(ctx, w, st, "success", fmt.Sprintf("Successfully logged in as %s", user.Username))

	if next != "" && isLocalPath(next) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSettingsForm renders the account settings page.
// GET /settings
func (s *Server) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "settings.html", nil)
}

// handleChangePassword changes the account password. Every other session of
// the user is revoked; the current browser gets a fresh session bound to the
// new password hash.
// POST /settings/password
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	current := r.PostFormValue("current-password")
	next := r.PostFormValue("new-password")

	user, err := s.backend.ChangePassword(ctx, st.User, current, next)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, auth.ErrWrongPassword):
			message = "Current password is incorrect."
		case errors.Is(err, auth.ErrWeakPassword):
			message = "Password must be at least 8 characters long."
		default:
			s.logger.Error("Failed to change password", "error", err)
			message = "An unexpected error occurred. Please try again."
		}

		s.flash(ctx, w, st, "error", message)
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}

	// Revoke every session carrying the old hash, then rebind this browser.
	if err := s.store.DeleteSessionsByUser(ctx, user.ID); err != nil {
		s.logger.Error("Failed to revoke sessions", "user_id", user.ID, "error", err)
	}
	st.Session = nil
	if err := s.sessions.Login(ctx, w, st, user); err != nil {
		s.logger.Error("Failed to start session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.flash(ctx, w, st, "success", "Password changed successfully.")
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

// handleLogout ends the session and returns to the feed.
// GET /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)

	if err := s.sessions.Logout(ctx, w, st); err != nil {
		s.logger.Error("Failed to log out", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// flash queues a one-shot message, logging instead of failing the request
// when the session can't be written.
func (s *Server) flash(ctx context.Context, w http.ResponseWriter, st *session.State, kind, message string) {
	if err := s.sessions.AddFlash(ctx, w, st, kind, message); err != nil {
		s.logger.Error("Failed to add flash", "error", err)
	}
}

// isLocalPath rejects redirect targets that leave the site.
func isLocalPath(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && len(target) > 0 && target[0] == '/'
}
