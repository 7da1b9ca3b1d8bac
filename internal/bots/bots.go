// Package bots maps User-Agent strings to canonical crawler names.
package bots

import (
	"regexp"
	"strings"
)

const (
	OtherBot = "Other Bot"
	Unknown  = "Browser / Unknown"
)

// Signature pairs a case-sensitive User-Agent substring with the name it
// reports.
type Signature struct {
	Needle string `json:"needle"`
	Name   string `json:"name"`
}

// Order matters: the first matching needle wins.
var signatures = []Signature{
	{"ClaudeBot", "ClaudeBot"},
	{"claude-web", "ClaudeBot"},
	{"GPTBot", "GPTBot"},
	{"ChatGPT-User", "ChatGPT"},
	{"OAI-SearchBot", "OAI-SearchBot"},
	{"Google-Extended", "Google AI"},
	{"Googlebot", "Googlebot"},
	{"Bingbot", "Bingbot"},
	{"bingbot", "Bingbot"},
	{"PerplexityBot", "PerplexityBot"},
	{"YouBot", "YouBot"},
	{"CCBot", "CCBot"},
	{"cohere-ai", "Cohere"},
	{"Applebot", "Applebot"},
	{"Bytespider", "Bytespider"},
	{"Meta-ExternalAgent", "Meta AI"},
}

var genericRe = regexp.MustCompile(`(?i)bot|crawl|spider|agent|scraper`)

// Classify returns the canonical bot name for ua, OtherBot for strings that
// look automated but are not in the table, and Unknown otherwise.
func Classify(ua string) string {
	if ua == "" {
		return Unknown
	}
	for _, s := range signatures {
		if strings.Contains(ua, s.Needle) {
			return s.Name
		}
	}
	if genericRe.MatchString(ua) {
		return OtherBot
	}
	return Unknown
}

// Signatures returns a copy of the signature table in match order.
func Signatures() []Signature {
	out := make([]Signature, len(signatures))
	copy(out, signatures)
	return out
}
