package accesslog

import (
	"context"
	"time"
)

// Trigger methods recorded with each entry.
const (
	MethodURL    = "url"
	MethodHeader = "header"
)

// Field limits applied before insert.
const (
	maxUserAgentLen = 512
	maxBotNameLen   = 100
)

// Entry is one served document. Entries are never updated.
type Entry struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	Path      string    `json:"path"`
	UserAgent string    `json:"user_agent"`
	BotName   string    `json:"bot_name"`
	Method    string    `json:"method"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

// Policy carries the logging switch and caps from the current settings.
// A zero cap disables that check.
type Policy struct {
	Enabled       bool
	RetentionDays int
	MaxEntries    int
	MaxBytes      int64
}

// BotCount is one row of the per-bot breakdown.
type BotCount struct {
	BotName string `json:"bot_name"`
	Count   int64  `json:"count"`
}

// Stats summarizes the log.
type Stats struct {
	Total int64      `json:"total"`
	Today int64      `json:"today"`
	Bots  []BotCount `json:"bots"`
}

// Page is one page of Query results.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int64   `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}

// Log defines the access log operations used by the HTTP and MCP layers.
type Log interface {
	Append(ctx context.Context, e Entry, p Policy) error
	Query(ctx context.Context, perPage, page int, bot string) (*Page, error)
	Stats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
}

// Verify *Store satisfies Log at compile time.
var _ Log = (*Store)(nil)
