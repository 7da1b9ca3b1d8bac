package pipeline

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/starford/servemd/internal/checksum"
	"github.com/starford/servemd/internal/models"
	"github.com/starford/servemd/internal/resolve"
	"github.com/starford/servemd/internal/settings"
)

// PasswordCookiePrefix names the cookie that unlocks a password-gated item:
// the full name is the prefix followed by the item id, and the value is the
// hex SHA-256 of the password.
const PasswordCookiePrefix = "servemd-pass-"

// Reason names the gate that rejected an item.
type Reason string

const (
	Allowed          Reason = ""
	NotAddressable   Reason = "not addressable"
	TypeDisabled     Reason = "type disabled"
	OptedOut         Reason = "opted out"
	Excluded         Reason = "excluded taxonomy term"
	PasswordRequired Reason = "password required"
)

// Check runs the gates in order and returns the first failure, or Allowed.
// r identifies the viewer for the password gate; a nil r is an anonymous
// viewer.
func (p *Pipeline) Check(it *models.Item, s *settings.Settings, r *http.Request) Reason {
	switch {
	case !it.Addressable():
		return NotAddressable
	case !s.TypeEnabled(it.Type):
		return TypeDisabled
	case it.MarkdownDisabled:
		return OptedOut
	case p.excluded(it, s):
		return Excluded
	case it.Password != "" && !Unlocked(r, it):
		return PasswordRequired
	}
	return Allowed
}

// Eligible reports whether it passes every gate for the viewer of r.
func (p *Pipeline) Eligible(it *models.Item, s *settings.Settings, r *http.Request) bool {
	return p.Check(it, s, r) == Allowed
}

// excluded reports whether any category is in the category exclusion set or
// any tag is in the tag exclusion set. A taxonomy lookup failure excludes
// the item.
func (p *Pipeline) excluded(it *models.Item, s *settings.Settings) bool {
	if len(s.ExcludeCategories) == 0 && len(s.ExcludeTags) == 0 {
		return false
	}
	cats, tags, err := p.src.Terms(it.ID)
	if err != nil {
		return true
	}
	return intersects(cats, s.ExcludeCategories) || intersects(tags, s.ExcludeTags)
}

func intersects(terms []models.Term, ids []int64) bool {
	for _, t := range terms {
		if slices.Contains(ids, t.ID) {
			return true
		}
	}
	return false
}

// Unlocked reports whether r carries the unlock cookie for it.
func Unlocked(r *http.Request, it *models.Item) bool {
	if r == nil || it.Password == "" {
		return it.Password == ""
	}
	c, err := r.Cookie(PasswordCookiePrefix + strconv.FormatInt(it.ID, 10))
	if err != nil {
		return false
	}
	return checksum.Matches(c.Value, it.Password)
}

// MarkdownURL turns a permalink into its Markdown URL by dropping one
// trailing slash and appending the suffix.
func MarkdownURL(permalink string) string {
	return strings.TrimSuffix(permalink, "/") + resolve.Suffix
}
