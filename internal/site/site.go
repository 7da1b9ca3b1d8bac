// Package site renders the regular HTML page of a content item. It sits
// behind the Markdown middleware and handles every request the middleware
// passes on.
package site

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/starford/servemd/internal/pipeline"
	"github.com/starford/servemd/internal/settings"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- if .MarkdownURL}}
<link rel="alternate" type="text/markdown" href="{{.MarkdownURL}}" title="{{.Title}} (Markdown)" />
{{- end}}
</head>
<body>
<article>
<h1>{{.Title}}</h1>
{{.Body}}
</article>
</body>
</html>
`))

const protectedBody = `<p>This content is password protected.</p>`

type page struct {
	Title       string
	MarkdownURL string
	Body        template.HTML
}

// Handler serves item pages.
type Handler struct {
	src      pipeline.Source
	pipe     *pipeline.Pipeline
	settings *settings.Store
	logger   *slog.Logger
}

// NewHandler returns a Handler. pipe decides whether a page advertises its
// Markdown alternate.
func NewHandler(src pipeline.Source, pipe *pipeline.Pipeline, st *settings.Store, logger *slog.Logger) *Handler {
	return &Handler{src: src, pipe: pipe, settings: st, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	id, ok := h.src.LookupPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	it, err := h.src.Item(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	s := h.settings.Load()
	p := page{Title: it.Title}
	if it.Password != "" && !pipeline.Unlocked(r, it) {
		p.Body = protectedBody
	} else {
		body, err := h.src.RenderHTML(it)
		if err != nil {
			h.logger.Error("site: render failed", slog.Int64("item_id", it.ID), slog.String("error", err.Error()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		p.Body = template.HTML(body) //nolint:gosec // item bodies are trusted site content
		if s.EnableDiscoveryLink && h.pipe.Eligible(it, s, r) {
			p.MarkdownURL = pipeline.MarkdownURL(h.src.Permalink(it))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Add("Vary", "Accept")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := pageTmpl.Execute(w, p); err != nil {
		h.logger.Warn("site: write page failed", slog.String("error", err.Error()))
	}
}
