package accesslog

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// guard lets at most one caller per window through. next holds the unix
// nanosecond time at which the guard opens again.
type guard struct {
	window time.Duration
	next   atomic.Int64
}

// acquire reports whether the caller won the guard at now. The check and the
// update happen in one compare-and-swap so concurrent callers cannot both win.
func (g *guard) acquire(now time.Time) bool {
	t := now.UnixNano()
	for {
		n := g.next.Load()
		if t < n {
			return false
		}
		if g.next.CompareAndSwap(n, t+int64(g.window)) {
			return true
		}
	}
}

// RetentionSweep deletes entries older than days. It runs at most once per
// RetentionWindow; the window is consumed even when days <= 0.
func (s *Store) RetentionSweep(ctx context.Context, days int) (int64, error) {
	now := s.now()
	if !s.retention.acquire(now) {
		return 0, nil
	}
	if days <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -days).UnixNano()
	res, err := s.conn.ExecContext(ctx, `DELETE FROM access_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("accesslog: retention sweep: %w", err)
	}
	return res.RowsAffected()
}

// SizeSweep enforces the row cap and then the byte cap, at most once per
// SizeWindow. Over the row cap the oldest excess rows go; over the byte cap
// the oldest tenth of the rows goes in a single pass, which may leave the
// database still above maxBytes until the next window.
func (s *Store) SizeSweep(ctx context.Context, maxEntries int, maxBytes int64) (int64, error) {
	if !s.size.acquire(s.now()) {
		return 0, nil
	}

	var deleted int64
	if maxEntries > 0 {
		count, err := s.count(ctx)
		if err != nil {
			return deleted, err
		}
		if count > int64(maxEntries) {
			n, err := s.deleteOldest(ctx, count-int64(maxEntries))
			deleted += n
			if err != nil {
				return deleted, err
			}
		}
	}

	if maxBytes > 0 {
		size, err := s.SizeBytes(ctx)
		if err != nil {
			return deleted, err
		}
		if size > maxBytes {
			count, err := s.count(ctx)
			if err != nil {
				return deleted, err
			}
			n, err := s.deleteOldest(ctx, max(1, int64(math.Ceil(float64(count)*0.10))))
			deleted += n
			if err != nil {
				return deleted, err
			}
		}
	}
	return deleted, nil
}

// SizeBytes reports the bytes used by live database pages.
func (s *Store) SizeBytes(ctx context.Context) (int64, error) {
	var size int64
	err := s.conn.QueryRowContext(ctx, `
		SELECT (p.page_count - f.freelist_count) * s.page_size
		FROM pragma_page_count() AS p, pragma_freelist_count() AS f, pragma_page_size() AS s
	`).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("accesslog: size: %w", err)
	}
	return size, nil
}

func (s *Store) count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM access_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("accesslog: count: %w", err)
	}
	return n, nil
}

func (s *Store) deleteOldest(ctx context.Context, n int64) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM access_log WHERE id IN (
			SELECT id FROM access_log ORDER BY created_at ASC, id ASC LIMIT ?
		)
	`, n)
	if err != nil {
		return 0, fmt.Errorf("accesslog: delete oldest: %w", err)
	}
	return res.RowsAffected()
}
