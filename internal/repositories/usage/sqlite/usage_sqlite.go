// Package sqlite persists usage windows in a shared SQLite file. Each
// decision (prune, count, conditional append) runs inside one transaction,
// so concurrent submissions for the same key cannot overshoot the limit.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/clipshare/be/pkg/repositories/usage"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ usage.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS usage_events (
    key TEXT NOT NULL,
    at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_events_key_at ON usage_events(key, at_ms);
`)
	return err
}

func (s *SQLiteStore) Disconnect() { _ = s.db.Close() }

// SetClock overrides the time source. Test use only.
func (s *SQLiteStore) SetClock(now func() time.Time) { s.now = now }

func (s *SQLiteStore) Check(ctx context.Context, key string, limit int, window time.Duration) (usage.Decision, error) {
	return s.decide(ctx, key, limit, window, false)
}

func (s *SQLiteStore) Acquire(ctx context.Context, key string, limit int, window time.Duration) (usage.Decision, error) {
	return s.decide(ctx, key, limit, window, true)
}

func (s *SQLiteStore) decide(ctx context.Context, key string, limit int, window time.Duration, acquire bool) (usage.Decision, error) {
	nowMs := s.now().UnixMilli()
	cutoff := nowMs - window.Milliseconds()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return usage.Decision{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lazy prune: drop everything that aged out of the window.
	if _, err := tx.ExecContext(ctx, `DELETE FROM usage_events WHERE key = ? AND at_ms <= ?`, key, cutoff); err != nil {
		return usage.Decision{}, err
	}

	var count int
	var earliest sql.NullInt64
	row := tx.QueryRowContext(ctx, `SELECT COUNT(*), MIN(at_ms) FROM usage_events WHERE key = ?`, key)
	if err := row.Scan(&count, &earliest); err != nil {
		return usage.Decision{}, err
	}

	if count >= limit {
		retry := time.Duration(earliest.Int64+window.Milliseconds()-nowMs) * time.Millisecond
		if retry < 0 {
			retry = 0
		}
		if err := tx.Commit(); err != nil {
			return usage.Decision{}, err
		}
		return usage.Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}

	remaining := limit - count
	if acquire {
		if _, err := tx.ExecContext(ctx, `INSERT INTO usage_events (key, at_ms) VALUES (?, ?)`, key, nowMs); err != nil {
			return usage.Decision{}, err
		}
		remaining--
	}
	if err := tx.Commit(); err != nil {
		return usage.Decision{}, err
	}
	return usage.Decision{Allowed: true, Remaining: remaining}, nil
}
