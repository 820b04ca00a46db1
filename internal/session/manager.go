// Package session implements cookie-backed server-side sessions with
// sliding expiry and flash messages.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tombotower/tower-server/internal/auth"
	"github.com/tombotower/tower-server/internal/domain"
	"github.com/tombotower/tower-server/internal/id"
	"github.com/tombotower/tower-server/internal/store"
	"github.com/tombotower/tower-server/internal/store/sqlite"
)

const (
	// CookieName is the session cookie set on every stateful response.
	CookieName = "tower_session"

	// Lifetime is the inactivity window: each request that touches the
	// session pushes expiry this far into the future.
	Lifetime = 24 * time.Hour
)

// State is the per-request session view resolved by Load. Session is nil
// until something is worth persisting (a login or a flash); User is nil for
// anonymous visitors.
type State struct {
	Session *domain.Session
	User    *domain.User
}

// IsAuthenticated reports whether the request carries a logged-in user.
func (st *State) IsAuthenticated() bool {
	return st.User != nil
}

type contextKey string

const stateKey contextKey = "session_state"

// NewContext returns a context carrying the session state.
func NewContext(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// FromContext extracts the session state placed by the session middleware.
// Returns an empty anonymous state if none is present.
func FromContext(ctx context.Context) *State {
	if st, ok := ctx.Value(stateKey).(*State); ok {
		return st
	}
	return &State{}
}

// Manager resolves, mutates, and persists sessions. Sessions are rows in the
// sqlite store; the cookie only carries the sealed session ID.
type Manager struct {
	store   *sqlite.Store
	backend *auth.Backend
	codec   *auth.CookieCodec
	logger  *slog.Logger
	secure  bool
}

// NewManager creates a session manager. secure controls the cookie's Secure
// and SameSite attributes and should be true behind TLS.
func NewManager(s *sqlite.Store, backend *auth.Backend, codec *auth.CookieCodec, logger *slog.Logger, secure bool) *Manager {
	return &Manager{
		store:   s,
		backend: backend,
		codec:   codec,
		logger:  logger,
		secure:  secure,
	}
}

// Load resolves the request's session. Missing, forged, expired, or
// invalidated sessions all degrade to an anonymous state rather than error;
// only storage failures are returned. Valid sessions get their expiry
// bumped and their cookie refreshed.
func (m *Manager) Load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*State, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return &State{}, nil
	}

	sessionID, err := m.codec.Decode(cookie.Value)
	if err != nil {
		// Forged or stale cookie. Drop it and carry on anonymously.
		m.clearCookie(w)
		return &State{}, nil
	}

	sess, err := m.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		m.clearCookie(w)
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	now := time.Now()
	if sess.IsExpired(now) {
		m.discard(ctx, w, sess.ID)
		return &State{}, nil
	}

	st := &State{Session: sess}

	if sess.UserID != nil {
		user, err := m.backend.LoadUser(ctx, *sess.UserID)
		if err != nil {
			return nil, err
		}
		// A deleted user or a changed password invalidates the session.
		if user == nil || subtle.ConstantTimeCompare([]byte(sess.AuthHash), auth.SessionAuthHash(user)) != 1 {
			m.discard(ctx, w, sess.ID)
			return &State{}, nil
		}
		st.User = user
	}

	// Sliding expiry: activity keeps the session alive.
	sess.ExpiresAt = now.Add(Lifetime)
	if err := m.store.UpdateSession(ctx, sess); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	m.setCookie(w, sess.ID)

	return st, nil
}

// Login rotates the session: the pre-login session row (and its ID) is
// discarded and a fresh one is created for the user, carrying pending
// flashes across.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, st *State, user *domain.User) error {
	var flashes []domain.Flash
	if st.Session != nil {
		flashes = st.Session.Flashes
		m.discard(ctx, w, st.Session.ID)
	}

	sessionID, err := id.Generate("sess")
	if err != nil {
		return fmt.Errorf("generate session ID: %w", err)
	}

	now := time.Now()
	sess := &domain.Session{
		ID:        sessionID,
		UserID:    &user.ID,
		AuthHash:  string(auth.SessionAuthHash(user)),
		Flashes:   flashes,
		CreatedAt: now,
		ExpiresAt: now.Add(Lifetime),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	st.Session = sess
	st.User = user
	m.setCookie(w, sess.ID)

	m.logger.Info("User logged in", "username", user.Username)
	return nil
}

// Logout deletes the session row and clears the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, st *State) error {
	if st.Session != nil {
		m.discard(ctx, w, st.Session.ID)
		st.Session = nil
	}
	st.User = nil
	return nil
}

// AddFlash queues a one-shot message for the next rendered page, creating a
// session row on demand for anonymous visitors.
func (m *Manager) AddFlash(ctx context.Context, w http.ResponseWriter, st *State, kind, message string) error {
	if st.Session == nil {
		if err := m.create(ctx, w, st); err != nil {
			return err
		}
	}
	st.Session.Flashes = append(st.Session.Flashes, domain.Flash{Kind: kind, Message: message})
	if err := m.store.UpdateSession(ctx, st.Session); err != nil {
		return fmt.Errorf("save flash: %w", err)
	}
	return nil
}

// TakeFlashes returns the pending flash messages and clears them, so each
// is shown exactly once.
func (m *Manager) TakeFlashes(ctx context.Context, st *State) ([]domain.Flash, error) {
	if st.Session == nil || len(st.Session.Flashes) == 0 {
		return nil, nil
	}

	flashes := st.Session.Flashes
	st.Session.Flashes = nil
	if err := m.store.UpdateSession(ctx, st.Session); err != nil {
		return nil, fmt.Errorf("clear flashes: %w", err)
	}
	return flashes, nil
}

// create persists a fresh anonymous session and sets its cookie.
func (m *Manager) create(ctx context.Context, w http.ResponseWriter, st *State) error {
	sessionID, err := id.Generate("sess")
	if err != nil {
		return fmt.Errorf("generate session ID: %w", err)
	}

	now := time.Now()
	sess := &domain.Session{
		ID:        sessionID,
		CreatedAt: now,
		ExpiresAt: now.Add(Lifetime),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	st.Session = sess
	m.setCookie(w, sess.ID)
	return nil
}

// discard deletes a session row and clears the cookie. Deletion failures
// are logged, not surfaced: the cookie is gone either way.
func (m *Manager) discard(ctx context.Context, w http.ResponseWriter, sessionID string) {
	if err := m.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		m.logger.Warn("Failed to delete session", "session_id", sessionID, "error", err)
	}
	m.clearCookie(w)
}

func (m *Manager) setCookie(w http.ResponseWriter, sessionID string) {
	sameSite := http.SameSiteLaxMode
	if m.secure {
		// The browser extension calls the API cross-origin with credentials.
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.codec.Encode(sessionID),
		Path:     "/",
		MaxAge:   int(Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: sameSite,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}
