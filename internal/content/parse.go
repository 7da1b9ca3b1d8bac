package content

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/starford/servemd/internal/models"
)

// document is the frontmatter envelope of a content file.
type document struct {
	ID               int64             `yaml:"id"`
	Type             string            `yaml:"type"`
	Status           string            `yaml:"status"`
	Path             string            `yaml:"path"`
	Title            string            `yaml:"title"`
	Author           *models.Author    `yaml:"author"`
	Date             time.Time         `yaml:"date"`
	Modified         time.Time         `yaml:"modified"`
	Excerpt          string            `yaml:"excerpt"`
	Image            string            `yaml:"image"`
	Password         string            `yaml:"password"`
	MarkdownDisabled bool              `yaml:"markdown_disabled"`
	Categories       []models.Term     `yaml:"categories"`
	Tags             []models.Term     `yaml:"tags"`
	Meta             map[string]string `yaml:"meta"`
}

// parseItem builds an Item from a content file. Missing type and status
// default to "post" and "publish"; a missing path is derived from rel.
func parseItem(rel string, data []byte, mtime time.Time) (*models.Item, error) {
	var doc document
	body, err := frontmatter.Parse(bytes.NewReader(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("content: parse %s: %w", rel, err)
	}
	if doc.ID <= 0 {
		return nil, fmt.Errorf("content: %s: missing or invalid id", rel)
	}

	it := &models.Item{
		ID:               doc.ID,
		Type:             orDefault(doc.Type, "post"),
		Status:           orDefault(doc.Status, models.StatusPublish),
		Path:             CanonicalPath(orDefault(doc.Path, pathFromFile(rel))),
		Title:            strings.TrimSpace(doc.Title),
		Author:           doc.Author,
		Published:        doc.Date,
		Modified:         doc.Modified,
		Excerpt:          strings.TrimSpace(doc.Excerpt),
		Image:            doc.Image,
		Password:         doc.Password,
		MarkdownDisabled: doc.MarkdownDisabled,
		Categories:       doc.Categories,
		Tags:             doc.Tags,
		Meta:             doc.Meta,
		Source:           string(body),
		Format:           "html",
	}
	if strings.EqualFold(filepath.Ext(rel), ExtMarkdown) {
		it.Format = "markdown"
	}
	if it.Published.IsZero() {
		it.Published = mtime
	}
	if it.Modified.IsZero() {
		it.Modified = it.Published
	}
	return it, nil
}

// pathFromFile maps "blog/hello.html" to "blog/hello" and "index.md" to the
// site root.
func pathFromFile(rel string) string {
	p := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	if p == "index" {
		return ""
	}
	return strings.TrimSuffix(p, "/index")
}

// CanonicalPath returns p with a leading and trailing slash, the form used
// for permalinks and lookups.
func CanonicalPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
