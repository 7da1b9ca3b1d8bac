// Package models defines the domain types for servemd.
package models

import "time"

// Item statuses.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
	StatusPrivate = "private"
)

// Item is a content item as seen by the Markdown pipeline. It is read-only
// to the pipeline; the content library owns its lifecycle.
type Item struct {
	ID               int64             `json:"id"`
	Type             string            `json:"type"`
	Status           string            `json:"status"`
	Path             string            `json:"path"`
	Title            string            `json:"title"`
	Author           *Author           `json:"author,omitempty"`
	Published        time.Time         `json:"published"`
	Modified         time.Time         `json:"modified"`
	Excerpt          string            `json:"excerpt,omitempty"`
	Image            string            `json:"image,omitempty"`
	Password         string            `json:"-"`
	MarkdownDisabled bool              `json:"markdown_disabled"`
	Categories       []Term            `json:"categories,omitempty"`
	Tags             []Term            `json:"tags,omitempty"`
	Meta             map[string]string `json:"meta,omitempty"`
	Source           string            `json:"-"`
	Format           string            `json:"format"` // "html" or "markdown"
}

// Addressable reports whether the item can be reached through its permalink.
func (it *Item) Addressable() bool {
	return it != nil && it.ID > 0 && it.Status == StatusPublish
}

// Author is the display identity attached to an item.
type Author struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url"`
}

// Term is a taxonomy term (category or tag).
type Term struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// TermNames returns the non-empty names of terms in order.
func TermNames(terms []Term) []string {
	var out []string
	for _, t := range terms {
		if t.Name != "" {
			out = append(out, t.Name)
		}
	}
	return out
}

// ItemMetadata is a lightweight record returned by content listings.
type ItemMetadata struct {
	File      string    `json:"file"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
