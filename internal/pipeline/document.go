package pipeline

import (
	"html"
	"strings"

	"github.com/starford/servemd/internal/converter"
	"github.com/starford/servemd/internal/metadata"
	"github.com/starford/servemd/internal/models"
	"github.com/starford/servemd/internal/settings"
)

// DateLayout is ISO 8601 with a numeric offset.
const DateLayout = "2006-01-02T15:04:05-07:00"

// Document renders it as frontmatter block plus converted body.
func (p *Pipeline) Document(it *models.Item, s *settings.Settings) (string, error) {
	body, err := p.src.RenderHTML(it)
	if err != nil {
		return "", err
	}
	return metadata.Block(p.Frontmatter(it, s)) + converter.Convert(body, it.Title), nil
}

// Frontmatter builds the ordered metadata map for it. A key is present only
// when its toggle is on and its value is non-empty.
func (p *Pipeline) Frontmatter(it *models.Item, s *settings.Settings) *metadata.Map {
	fm := metadata.NewMap()
	f := s.Frontmatter

	setString := func(key, v string) {
		if v != "" {
			fm.Set(key, v)
		}
	}

	if f.URL {
		setString("url", p.src.Permalink(it))
	}
	if f.Title {
		setString("title", it.Title)
	}
	if f.Author && it.Author != nil && it.Author.Name != "" {
		author := metadata.NewMap()
		author.Set("name", it.Author.Name)
		if it.Author.URL != "" {
			author.Set("url", it.Author.URL)
		}
		fm.Set("author", author)
	}
	if f.Date && !it.Published.IsZero() {
		fm.Set("date", it.Published.Format(DateLayout))
	}
	if f.Modified && !it.Modified.IsZero() {
		fm.Set("modified", it.Modified.Format(DateLayout))
	}
	if f.Type {
		setString("type", it.Type)
	}
	if f.Summary {
		setString("summary", strings.TrimSpace(html.UnescapeString(converter.StripTags(it.Excerpt))))
	}
	if f.Categories || f.Tags {
		cats, tags, err := p.src.Terms(it.ID)
		if err == nil {
			if names := models.TermNames(cats); f.Categories && len(names) > 0 {
				fm.Set("categories", names)
			}
			if names := models.TermNames(tags); f.Tags && len(names) > 0 {
				fm.Set("tags", names)
			}
		}
	}
	if f.Image {
		setString("image", it.Image)
	}
	if f.Published {
		fm.Set("published", it.Status == models.StatusPublish)
	}
	for _, c := range s.CustomPairs() {
		setString(c.Key, c.Value)
	}
	for _, k := range s.MetaKeys {
		setString(k, it.Meta[k])
	}
	return fm
}
