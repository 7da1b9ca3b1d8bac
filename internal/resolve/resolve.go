// Package resolve decides whether a request asks for Markdown and which
// content item it targets.
package resolve

import (
	"regexp"
	"strings"

	"github.com/starford/servemd/internal/accesslog"
	"github.com/starford/servemd/internal/settings"
)

// Suffix marks a Markdown URL.
const Suffix = ".md"

const markdownType = "text/markdown"

var zeroQualityRe = regexp.MustCompile(`(?i)^q\s*=\s*0(\.0{0,3})?$`)

// Kind says how a request matched.
type Kind int

const (
	NoMatch Kind = iota
	ByURL
	ByHeader
)

// Method names the trigger recorded in the access log.
func (k Kind) Method() string {
	switch k {
	case ByURL:
		return accesslog.MethodURL
	case ByHeader:
		return accesslog.MethodHeader
	default:
		return ""
	}
}

// Match is the outcome of Resolve.
type Match struct {
	Kind   Kind
	ItemID int64
}

// PathLookup maps a request path to a content item id.
type PathLookup interface {
	LookupPath(path string) (int64, bool)
}

// Resolver matches requests against a PathLookup.
type Resolver struct {
	lookup PathLookup
}

// New returns a Resolver backed by lookup.
func New(lookup PathLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve checks the URL suffix route first and the Accept header second.
// Each route only runs when its flag is set in s, and each needs the path to
// resolve to a known item.
func (r *Resolver) Resolve(path, accept string, s *settings.Settings) Match {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if s.EnableMDURL && strings.HasSuffix(path, Suffix) {
		if id, ok := r.lookup.LookupPath(strings.TrimSuffix(path, Suffix)); ok {
			return Match{Kind: ByURL, ItemID: id}
		}
	}

	if s.EnableContentNegotiation && AcceptsMarkdown(accept) {
		if id, ok := r.lookup.LookupPath(path); ok {
			return Match{Kind: ByHeader, ItemID: id}
		}
	}

	return Match{}
}

// AcceptsMarkdown reports whether accept lists text/markdown without a zero
// quality. Only the first text/markdown range is considered.
func AcceptsMarkdown(accept string) bool {
	for _, entry := range strings.Split(accept, ",") {
		params := strings.Split(entry, ";")
		if !strings.EqualFold(strings.TrimSpace(params[0]), markdownType) {
			continue
		}
		for _, p := range params[1:] {
			if zeroQualityRe.MatchString(strings.TrimSpace(p)) {
				return false
			}
		}
		return true
	}
	return false
}
