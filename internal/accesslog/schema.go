// Package accesslog stores one row per served Markdown document in SQLite and
// keeps the table bounded by age, row count and size.
package accesslog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS access_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id    INTEGER NOT NULL DEFAULT 0,
	path       TEXT    NOT NULL DEFAULT '',
	user_agent TEXT    NOT NULL DEFAULT '',
	bot_name   TEXT    NOT NULL DEFAULT '',
	method     TEXT    NOT NULL DEFAULT '',
	ip         TEXT    NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_access_log_created ON access_log(created_at);
CREATE INDEX IF NOT EXISTS idx_access_log_bot ON access_log(bot_name);
`

// Cooldown windows for the maintenance routines.
const (
	RetentionWindow = time.Hour
	SizeWindow      = 5 * time.Minute
)

// Store is the SQLite-backed access log.
type Store struct {
	conn *sql.DB
	now  func() time.Time
	loc  *time.Location

	retention guard
	size      guard
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps, retention cutoffs
// and cooldown windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone whose midnight starts "today" in Stats.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// Open opens (or creates) the SQLite database at dsn and applies the schema.
func Open(dsn string, opts ...Option) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("accesslog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("accesslog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("accesslog: apply schema: %w", err)
	}

	s := &Store{
		conn:      conn,
		now:       time.Now,
		loc:       time.Local,
		retention: guard{window: RetentionWindow},
		size:      guard{window: SizeWindow},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
