package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/Brownie44l1/osteo-care/internal/preprocess"
	"github.com/Brownie44l1/osteo-care/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	Title     string
	User      string
	Message   string
	Error     string
	Questions []string
	Result    session.Data
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}

	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		if path.Base(name) == "layout.html" {
			continue
		}
		t, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[strings.TrimSuffix(path.Base(name), ".html")] = t
	}
	return pages, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := h.pages[name]
	if !ok {
		h.logger.ErrorContext(r.Context(), "unknown page", "page", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data.User == "" {
		data.User = h.sessions.Get(r).UserName
	}
	data.Questions = preprocess.Questions[:]

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		h.logger.ErrorContext(r.Context(), "render page", "page", name, "error", err)
	}
}

// staticPage serves a page with no server-side state.
func (h *Handler) staticPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.render(w, r, http.StatusOK, name, pageData{Title: title})
	}
}
