// Package content is a file-backed content library: items are HTML or
// Markdown files with YAML frontmatter, kept in memory and refreshed from
// disk.
package content

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/servemd/internal/apperr"
	"github.com/starford/servemd/internal/models"
)

type fileEntry struct {
	id       int64
	checksum string
}

// Library holds the parsed items of one content directory.
type Library struct {
	fs      *FS
	baseURL string
	md      goldmark.Markdown
	logger  *slog.Logger

	mu     sync.RWMutex
	byID   map[int64]*models.Item
	byPath map[string]int64
	files  map[string]fileEntry
}

// NewLibrary returns an empty library over fsys. Call Sync to load it.
// baseURL is the public site origin used for permalinks.
func NewLibrary(fsys *FS, baseURL string, logger *slog.Logger) *Library {
	return &Library{
		fs:      fsys,
		baseURL: strings.TrimRight(baseURL, "/"),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		logger: logger,
		byID:   make(map[int64]*models.Item),
		byPath: make(map[string]int64),
		files:  make(map[string]fileEntry),
	}
}

// Root returns the content directory.
func (l *Library) Root() string {
	return l.fs.Root()
}

// Sync brings the library up to date with the directory:
//   - new/changed files are parsed and loaded
//   - files removed from disk are dropped
func (l *Library) Sync() error {
	metas, err := l.fs.List()
	if err != nil {
		return err
	}

	l.mu.RLock()
	known := make(map[string]string, len(l.files))
	for f, e := range l.files {
		known[f] = e.checksum
	}
	l.mu.RUnlock()

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.File] = struct{}{}
		if cs, ok := known[m.File]; ok && cs == m.Checksum {
			continue
		}
		if err := l.loadFile(m.File); err != nil {
			l.logger.Warn("sync: load failed", slog.String("file", m.File), slog.String("error", err.Error()))
		} else {
			l.logger.Debug("sync: loaded", slog.String("file", m.File))
		}
	}

	for f := range known {
		if _, ok := disk[f]; !ok {
			l.remove(f)
			l.logger.Debug("sync: removed stale", slog.String("file", f))
		}
	}
	return nil
}

// loadFile parses rel and replaces whatever that file contributed before.
// When rel no longer loads, its previous item is dropped.
func (l *Library) loadFile(rel string) error {
	it, meta, err := l.readItem(rel)
	if err != nil {
		l.remove(rel)
		return err
	}
	if it.Author != nil && it.Author.URL == "" && it.Author.Name != "" {
		it.Author = &models.Author{Name: it.Author.Name, URL: l.authorURL(it.Author.Name)}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.byID[it.ID]; ok && l.files[rel].id != it.ID {
		l.removeLocked(rel)
		return fmt.Errorf("content: %s: id %d already used by %s", rel, it.ID, prev.Path)
	}
	l.removeLocked(rel)
	if other, ok := l.byPath[it.Path]; ok && other != it.ID {
		l.logger.Warn("sync: path collision, last loaded wins",
			slog.String("file", rel),
			slog.String("path", it.Path),
			slog.Int64("shadowed_id", other))
	}
	l.byID[it.ID] = it
	l.byPath[it.Path] = it.ID
	l.files[rel] = fileEntry{id: it.ID, checksum: meta.Checksum}
	return nil
}

func (l *Library) readItem(rel string) (*models.Item, models.ItemMetadata, error) {
	data, err := l.fs.Read(rel)
	if err != nil {
		return nil, models.ItemMetadata{}, err
	}
	meta, err := l.fs.Stat(rel, data)
	if err != nil {
		return nil, models.ItemMetadata{}, err
	}
	it, err := parseItem(rel, data, meta.UpdatedAt)
	if err != nil {
		return nil, models.ItemMetadata{}, err
	}
	return it, meta, nil
}

// remove drops the item loaded from rel, if any.
func (l *Library) remove(rel string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeLocked(rel)
}

func (l *Library) removeLocked(rel string) bool {
	e, ok := l.files[rel]
	if !ok {
		return false
	}
	if it, ok := l.byID[e.id]; ok {
		if l.byPath[it.Path] == e.id {
			delete(l.byPath, it.Path)
		}
		delete(l.byID, e.id)
	}
	delete(l.files, rel)
	return true
}

// LookupPath maps a request path to the id of a published item.
func (l *Library) LookupPath(p string) (int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byPath[CanonicalPath(p)]
	if !ok {
		return 0, false
	}
	if !l.byID[id].Addressable() {
		return 0, false
	}
	return id, true
}

// Item returns the item with the given id. The result is shared and must
// not be modified.
func (l *Library) Item(id int64) (*models.Item, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	it, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("content: item %d: %w", id, apperr.ErrNotFound)
	}
	return it, nil
}

// Items returns every loaded item ordered by id.
func (l *Library) Items() []*models.Item {
	l.mu.RLock()
	out := make([]*models.Item, 0, len(l.byID))
	for _, it := range l.byID {
		out = append(out, it)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Terms returns the category and tag terms of an item.
func (l *Library) Terms(id int64) (categories, tags []models.Term, err error) {
	it, err := l.Item(id)
	if err != nil {
		return nil, nil, err
	}
	return it.Categories, it.Tags, nil
}

// RenderHTML returns the item body as HTML. Markdown files are rendered with
// GFM extensions; HTML files pass through.
func (l *Library) RenderHTML(it *models.Item) (string, error) {
	if it.Format != "markdown" {
		return it.Source, nil
	}
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(it.Source), &buf); err != nil {
		return "", fmt.Errorf("content: render item %d: %w", it.ID, err)
	}
	return buf.String(), nil
}

// Permalink returns the absolute URL of an item, with a trailing slash.
func (l *Library) Permalink(it *models.Item) string {
	return l.baseURL + it.Path
}

func (l *Library) authorURL(name string) string {
	s, err := slug.Normalize(name)
	if err != nil || s == "" {
		return ""
	}
	return l.baseURL + "/author/" + s + "/"
}
