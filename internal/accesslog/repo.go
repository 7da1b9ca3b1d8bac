package accesslog

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/servemd/internal/bots"
)

const defaultPerPage = 30

// Append records e when p.Enabled is set and then gives both maintenance
// routines a chance to run. Each routine throttles itself, so most calls
// cost a single insert.
func (s *Store) Append(ctx context.Context, e Entry, p Policy) error {
	if !p.Enabled {
		return nil
	}
	if _, err := s.Insert(ctx, e); err != nil {
		return err
	}
	var errs []error
	if _, err := s.RetentionSweep(ctx, p.RetentionDays); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.SizeSweep(ctx, p.MaxEntries, p.MaxBytes); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Insert normalizes e and writes it unconditionally, returning the new row id.
// An invalid IP is stored empty and a missing bot name is derived from the
// User-Agent.
func (s *Store) Insert(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.BotName == "" {
		e.BotName = bots.Classify(e.UserAgent)
	}
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO access_log (item_id, path, user_agent, bot_name, method, ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ItemID, e.Path, truncate(e.UserAgent, maxUserAgentLen), truncate(e.BotName, maxBotNameLen),
		e.Method, NormalizeIP(e.IP), e.CreatedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("accesslog: insert: %w", err)
	}
	return res.LastInsertId()
}

// Query returns one page of entries, newest first. bot filters by exact
// bot name when non-empty. Pages are 1-based.
func (s *Store) Query(ctx context.Context, perPage, page int, bot string) (*Page, error) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if page < 1 {
		page = 1
	}

	where, args := "", []any{}
	if bot != "" {
		where, args = "WHERE bot_name = ?", append(args, bot)
	}

	var total int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM access_log `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("accesslog: count: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, item_id, path, user_agent, bot_name, method, ip, created_at
		FROM access_log `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, fmt.Errorf("accesslog: query: %w", err)
	}
	defer rows.Close()

	out := &Page{Entries: []Entry{}, Total: total, Page: page, PerPage: perPage}
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Path, &e.UserAgent, &e.BotName, &e.Method, &e.IP, &created); err != nil {
			return nil, fmt.Errorf("accesslog: scan: %w", err)
		}
		e.CreatedAt = time.Unix(0, created).In(s.loc)
		out.Entries = append(out.Entries, e)
	}
	return out, rows.Err()
}

// Stats returns the total row count, the number of rows since local midnight
// and a per-bot breakdown ordered by count.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	st := &Stats{Bots: []BotCount{}}
	err := s.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM access_log
	`, midnight.UnixNano()).Scan(&st.Total, &st.Today)
	if err != nil {
		return nil, fmt.Errorf("accesslog: stats: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT bot_name, COUNT(*) AS cnt
		FROM access_log
		GROUP BY bot_name
		ORDER BY cnt DESC, bot_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("accesslog: bot breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b BotCount
		if err := rows.Scan(&b.BotName, &b.Count); err != nil {
			return nil, fmt.Errorf("accesslog: scan bot: %w", err)
		}
		st.Bots = append(st.Bots, b)
	}
	return st, rows.Err()
}

// Clear deletes every entry and resets the id sequence.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("accesslog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM access_log`); err != nil {
		return fmt.Errorf("accesslog: clear: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'access_log'`); err != nil {
		return fmt.Errorf("accesslog: reset sequence: %w", err)
	}
	return tx.Commit()
}

// NormalizeIP returns the canonical form of raw, or "" when raw is not an
// IPv4 or IPv6 address.
func NormalizeIP(raw string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return addr.String()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
