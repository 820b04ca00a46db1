// Package api provides the HTTP server: the server-rendered prompt pages
// and the JSON API consumed by the browser extension.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tombotower/tower-server/internal/auth"
	"github.com/tombotower/tower-server/internal/session"
	"github.com/tombotower/tower-server/internal/store/sqlite"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *sqlite.Store
	backend  *auth.Backend
	sessions *session.Manager
	router   *chi.Mux
	logger   *slog.Logger

	prod       bool
	siteOrigin string
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(store *sqlite.Store, backend *auth.Backend, sessions *session.Manager, logger *slog.Logger, prod bool, siteOrigin string) *Server {
	s := &Server{
		store:      store,
		backend:    backend,
		sessions:   sessions,
		router:     chi.NewRouter(),
		logger:     logger,
		prod:       prod,
		siteOrigin: siteOrigin,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  s.allowOrigin,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))
	s.router.Use(s.withSession)
}

// allowOrigin decides which cross-origin callers may reach the API with
// credentials. Browser extensions are always allowed; localhost only
// outside production.
func (s *Server) allowOrigin(_ *http.Request, origin string) bool {
	if strings.HasPrefix(origin, "moz-extension://") || strings.HasPrefix(origin, "chrome-extension://") {
		return true
	}
	if origin == s.siteOrigin {
		return true
	}
	if !s.prod && (strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1")) {
		return true
	}
	return false
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Public pages.
	s.router.Get("/", s.handleFeed)
	s.router.Get("/prompt/{promptID}", s.handlePromptDetail)
	s.router.Get("/prompt/{promptID}/raw", s.handlePromptRaw)
	s.router.Get("/prompt/{promptID}/tags/edit", s.handleTagEditForm)
	s.router.Post("/prompt/{promptID}/tags", s.handleSetTags)

	// Account pages.
	s.router.Get("/signup", s.handleSignupForm)
	s.router.Post("/signup", s.handleSignup)
	s.router.Get("/login", s.handleLoginForm)
	s.router.Post("/login", s.handleLogin)
	s.router.Get("/logout", s.handleLogout)

	// Pages behind login.
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/dashboard", s.handleFeed)
		r.Get("/prompt/new", s.handleNewPromptForm)
		r.Post("/prompt/new", s.handleCreatePrompt)
		r.Post("/prompt/{promptID}/star", s.handleToggleStar)
		r.Delete("/prompt/{promptID}/star", s.handleToggleStar)
		r.Get("/settings", s.handleSettingsForm)
		r.Post("/settings/password", s.handleChangePassword)
	})

	// Extension API.
	s.router.Get("/api/prompts", s.handleAPIPrompts)
	s.router.Get("/api/profile", s.handleAPIProfile)

	// Static assets.
	s.router.Get("/style.css", s.handleStatic)
}
