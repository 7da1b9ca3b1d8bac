// Package settings holds the typed serving configuration consulted on every
// request and an atomic snapshot store for hot reloads.
package settings

import (
	"slices"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// MaxRetentionDays is the longest retention window; larger values are clamped.
const MaxRetentionDays = 3650

// Settings is one immutable snapshot of the serving configuration.
// Snapshots handed out by a Store must not be mutated.
type Settings struct {
	EnableContentNegotiation bool `yaml:"enable_content_negotiation" json:"enable_content_negotiation"`
	EnableMDURL              bool `yaml:"enable_md_url" json:"enable_md_url"`
	EnableDiscoveryLink      bool `yaml:"enable_discovery_link" json:"enable_discovery_link"`

	PostTypes []string `yaml:"post_types" json:"post_types"`

	Frontmatter Frontmatter `yaml:"frontmatter" json:"frontmatter"`

	// CustomFields are static "key: value" lines appended to every
	// frontmatter block.
	CustomFields []string `yaml:"custom_fields" json:"custom_fields"`
	// MetaKeys name per-item meta values copied into the frontmatter.
	MetaKeys []string `yaml:"meta_keys" json:"meta_keys"`

	ExcludeCategories []int64 `yaml:"exclude_categories" json:"exclude_categories"`
	ExcludeTags       []int64 `yaml:"exclude_tags" json:"exclude_tags"`

	EnableLog        bool `yaml:"enable_log" json:"enable_log"`
	LogRetentionDays int  `yaml:"log_retention_days" json:"log_retention_days"`
	LogMaxEntries    int  `yaml:"log_max_entries" json:"log_max_entries"`
	LogMaxSizeMB     int  `yaml:"log_max_size_mb" json:"log_max_size_mb"`
}

// Frontmatter toggles each generated frontmatter key.
type Frontmatter struct {
	URL        bool `yaml:"url" json:"url"`
	Title      bool `yaml:"title" json:"title"`
	Author     bool `yaml:"author" json:"author"`
	Date       bool `yaml:"date" json:"date"`
	Modified   bool `yaml:"modified" json:"modified"`
	Type       bool `yaml:"type" json:"type"`
	Summary    bool `yaml:"summary" json:"summary"`
	Categories bool `yaml:"categories" json:"categories"`
	Tags       bool `yaml:"tags" json:"tags"`
	Image      bool `yaml:"image" json:"image"`
	Published  bool `yaml:"published" json:"published"`
}

// Field is a parsed custom frontmatter line.
type Field struct {
	Key   string
	Value string
}

// Default returns the stock settings: both resolution paths, the discovery
// link and every frontmatter key enabled, posts and pages served, logging on
// with a 30 day, 10000 row, 50 MB budget.
func Default() Settings {
	return Settings{
		EnableContentNegotiation: true,
		EnableMDURL:              true,
		EnableDiscoveryLink:      true,
		PostTypes:                []string{"post", "page"},
		Frontmatter: Frontmatter{
			URL: true, Title: true, Author: true, Date: true, Modified: true, Type: true,
			Summary: true, Categories: true, Tags: true, Image: true, Published: true,
		},
		EnableLog:        true,
		LogRetentionDays: 30,
		LogMaxEntries:    10000,
		LogMaxSizeMB:     50,
	}
}

// UnmarshalYAML decodes s, replacing a log cap that is not an integer with
// its default value instead of failing the whole document.
func (s *Settings) UnmarshalYAML(node *yaml.Node) error {
	type plain Settings
	if node.Kind != yaml.MappingNode {
		return node.Decode((*plain)(s))
	}
	def := Default()
	fallback := map[string]int{
		"log_retention_days": def.LogRetentionDays,
		"log_max_entries":    def.LogMaxEntries,
		"log_max_size_mb":    def.LogMaxSizeMB,
	}
	tolerant := *node
	tolerant.Content = slices.Clone(node.Content)
	for i := 0; i+1 < len(tolerant.Content); i += 2 {
		d, ok := fallback[tolerant.Content[i].Value]
		if !ok {
			continue
		}
		n := capValue(tolerant.Content[i+1], d)
		tolerant.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)}
	}
	return tolerant.Decode((*plain)(s))
}

// capValue reads an integer scalar, accepting quoted digits, and returns def
// for anything else.
func capValue(v *yaml.Node, def int) int {
	var n int
	if err := v.Decode(&n); err == nil {
		return n
	}
	if v.Kind == yaml.ScalarNode {
		if n, err := strconv.Atoi(strings.TrimSpace(v.Value)); err == nil {
			return n
		}
	}
	return def
}

// Normalize clamps caps into range (negative means disabled) and drops blank
// list entries.
func (s *Settings) Normalize() {
	s.LogRetentionDays = min(max(s.LogRetentionDays, 0), MaxRetentionDays)
	s.LogMaxEntries = max(s.LogMaxEntries, 0)
	s.LogMaxSizeMB = max(s.LogMaxSizeMB, 0)
	s.PostTypes = trimAll(s.PostTypes)
	s.MetaKeys = trimAll(s.MetaKeys)
	s.ExcludeCategories = slices.DeleteFunc(s.ExcludeCategories, func(id int64) bool { return id <= 0 })
	s.ExcludeTags = slices.DeleteFunc(s.ExcludeTags, func(id int64) bool { return id <= 0 })
}

// Validate normalizes s and checks the result.
func (s *Settings) Validate() error {
	s.Normalize()
	return validation.ValidateStruct(s,
		validation.Field(&s.PostTypes, validation.Each(validation.Required, validation.Length(1, 20))),
		validation.Field(&s.MetaKeys, validation.Each(validation.Required)),
	)
}

// TypeEnabled reports whether items of type t may be served as Markdown.
func (s *Settings) TypeEnabled(t string) bool {
	return slices.Contains(s.PostTypes, t)
}

// CustomPairs parses CustomFields. Each line is split on its first colon and
// both halves are trimmed; lines without a colon or with an empty key are
// skipped.
func (s *Settings) CustomPairs() []Field {
	var out []Field
	for _, line := range s.CustomFields {
		for _, l := range strings.Split(line, "\n") {
			k, v, ok := strings.Cut(l, ":")
			k = strings.TrimSpace(k)
			if !ok || k == "" {
				continue
			}
			out = append(out, Field{Key: k, Value: strings.TrimSpace(v)})
		}
	}
	return out
}

// LogLimits returns the log caps with the megabyte cap expressed in bytes.
func (s *Settings) LogLimits() (retentionDays, maxEntries int, maxBytes int64) {
	return s.LogRetentionDays, s.LogMaxEntries, int64(s.LogMaxSizeMB) * 1024 * 1024
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
