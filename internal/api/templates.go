package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/tombotower/tower-server/internal/domain"
	"github.com/tombotower/tower-server/internal/dto"
	"github.com/tombotower/tower-server/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/style.css
var styleCSS []byte

// pageTemplates is the shared template set, parsed once at startup.
var pageTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"formatDate": dto.FormatDate,
	"deref":      func(p *int64) int64 { return *p },
}).ParseFS(templateFS, "templates/*.html"))

// pageData is the envelope every full page template receives.
type pageData struct {
	User    *domain.User
	Flashes []domain.Flash
	Data    any
}

// render executes a full page template, consuming any pending flash
// messages. Output is buffered so a render failure still produces a clean
// 500 instead of a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	st := session.FromContext(r.Context())

	flashes, err := s.sessions.TakeFlashes(r.Context(), st)
	if err != nil {
		s.logger.Error("Failed to take flashes", "error", err)
	}

	page := pageData{
		User:    st.User,
		Flashes: flashes,
		Data:    data,
	}

	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, page); err != nil {
		s.logger.Error("Failed to render template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// renderPartial executes a fragment template for htmx swaps. No flash
// handling: partials replace a region, not the page.
func (s *Server) renderPartial(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Failed to render partial", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleStatic serves the embedded stylesheet.
func (s *Server) handleStatic(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(styleCSS)
}
