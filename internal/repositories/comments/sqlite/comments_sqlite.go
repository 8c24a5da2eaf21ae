package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clipshare/be/pkg/gate/identity"
	crepo "github.com/clipshare/be/pkg/repositories/comments"
	_ "modernc.org/sqlite"
)

// SQLiteRepo is the SQLite-backed comment store.
type SQLiteRepo struct {
	db *sql.DB
}

var _ crepo.Repository = (*SQLiteRepo)(nil)

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
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
	return &SQLiteRepo{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    video_id TEXT,
    fingerprint TEXT,
    content TEXT NOT NULL,
    created TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_video_id ON comments(video_id);
CREATE INDEX IF NOT EXISTS idx_comments_fingerprint ON comments(fingerprint);
`)
	return err
}

func (r *SQLiteRepo) Disconnect() { _ = r.db.Close() }

func (r *SQLiteRepo) Insert(ctx context.Context, c *crepo.Comment) error {
	if c.ID == "" {
		return errors.New("comment id not set")
	}
	if (c.VideoID == "") == (c.Fingerprint == "") {
		return errors.New("comment must target exactly one identifier")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, video_id, fingerprint, content, created) VALUES (?, ?, ?, ?, ?)`,
		c.ID, nullable(c.VideoID), nullable(c.Fingerprint), c.Content, c.Created.UTC())
	return err
}

func (r *SQLiteRepo) ListForVideo(ctx context.Context, key identity.Key) ([]crepo.Comment, error) {
	clause := "video_id = ?"
	if key.Kind == identity.Fingerprint {
		clause = "fingerprint = ?"
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, video_id, fingerprint, content, created FROM comments WHERE `+clause+` ORDER BY created ASC`, key.Value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []crepo.Comment{}
	for rows.Next() {
		var c crepo.Comment
		var videoID, fingerprint sql.NullString
		if err := rows.Scan(&c.ID, &videoID, &fingerprint, &c.Content, &c.Created); err != nil {
			return nil, err
		}
		c.VideoID = videoID.String
		c.Fingerprint = fingerprint.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
