// Package pipeline serves eligible content items as Markdown documents and
// records each serve in the access log.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/starford/servemd/internal/accesslog"
	"github.com/starford/servemd/internal/apperr"
	"github.com/starford/servemd/internal/models"
	"github.com/starford/servemd/internal/resolve"
	"github.com/starford/servemd/internal/settings"
)

// ContentType of served documents.
const ContentType = "text/markdown; charset=utf-8"

// Source is the content collaborator: path lookup, item fetch, taxonomy,
// rendering and permalinks.
type Source interface {
	resolve.PathLookup
	Item(id int64) (*models.Item, error)
	Items() []*models.Item
	Terms(id int64) (categories, tags []models.Term, err error)
	RenderHTML(it *models.Item) (string, error)
	Permalink(it *models.Item) string
}

// Pipeline resolves, authorizes, converts and emits Markdown documents.
type Pipeline struct {
	src      Source
	resolver *resolve.Resolver
	settings *settings.Store
	log      accesslog.Log
	logger   *slog.Logger
}

// New builds a Pipeline. log may be nil, in which case nothing is recorded.
func New(src Source, st *settings.Store, log accesslog.Log, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		src:      src,
		resolver: resolve.New(src),
		settings: st,
		log:      log,
		logger:   logger,
	}
}

// Middleware answers Markdown requests for eligible items and hands every
// other request to next unchanged.
func (p *Pipeline) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		s := p.settings.Load()
		m := p.resolver.Resolve(r.URL.Path, r.Header.Get("Accept"), s)
		if m.Kind == resolve.NoMatch {
			next.ServeHTTP(w, r)
			return
		}

		it, err := p.src.Item(m.ItemID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if reason := p.Check(it, s, r); reason != Allowed {
			p.logger.Debug("pipeline: rejected",
				slog.Int64("item_id", it.ID),
				slog.String("reason", string(reason)))
			next.ServeHTTP(w, r)
			return
		}

		doc, err := p.Document(it, s)
		if err != nil {
			p.logger.Warn("pipeline: build document failed",
				slog.Int64("item_id", it.ID),
				slog.String("error", err.Error()))
			next.ServeHTTP(w, r)
			return
		}

		p.record(r, it.ID, m.Kind.Method(), s)

		h := w.Header()
		h.Set("Content-Type", ContentType)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Cache-Control", "no-store")
		h.Add("Vary", "Accept")
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = io.WriteString(w, doc)
		}
	})
}

// Markdown returns the document for item id as an anonymous viewer would
// receive it, without recording an access. It fails with apperr.ErrNotFound
// for unknown ids and apperr.ErrNotEligible when a gate rejects the item.
func (p *Pipeline) Markdown(_ context.Context, id int64) (string, error) {
	it, err := p.src.Item(id)
	if err != nil {
		return "", err
	}
	s := p.settings.Load()
	if reason := p.Check(it, s, nil); reason != Allowed {
		return "", fmt.Errorf("pipeline: item %d: %w: %s", id, apperr.ErrNotEligible, reason)
	}
	return p.Document(it, s)
}

// ItemStatus reports whether an item is served as Markdown to an anonymous
// viewer, and if not, which gate rejects it.
type ItemStatus struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	MarkdownURL string `json:"markdown_url,omitempty"`
	Reason      Reason `json:"reason,omitempty"`
}

// Catalog checks every item against the current settings. MarkdownURL is set
// only for eligible items while .md URLs are enabled.
func (p *Pipeline) Catalog() []ItemStatus {
	s := p.settings.Load()
	items := p.src.Items()
	out := make([]ItemStatus, 0, len(items))
	for _, it := range items {
		st := ItemStatus{
			ID:     it.ID,
			Title:  it.Title,
			Type:   it.Type,
			URL:    p.src.Permalink(it),
			Reason: p.Check(it, s, nil),
		}
		if st.Reason == Allowed && s.EnableMDURL {
			st.MarkdownURL = MarkdownURL(st.URL)
		}
		out = append(out, st)
	}
	return out
}

// record appends the serve to the access log. Failures are logged and
// otherwise ignored so the response still goes out.
func (p *Pipeline) record(r *http.Request, itemID int64, method string, s *settings.Settings) {
	if p.log == nil {
		return
	}
	days, rows, bytes := s.LogLimits()
	err := p.log.Append(r.Context(), accesslog.Entry{
		ItemID:    itemID,
		Path:      r.URL.RequestURI(),
		UserAgent: r.UserAgent(),
		Method:    method,
		IP:        clientIP(r),
	}, accesslog.Policy{
		Enabled:       s.EnableLog,
		RetentionDays: days,
		MaxEntries:    rows,
		MaxBytes:      bytes,
	})
	if err != nil {
		p.logger.Warn("pipeline: access log append failed",
			slog.Int64("item_id", itemID),
			slog.String("error", err.Error()))
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware may
// already have replaced it with a bare address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
