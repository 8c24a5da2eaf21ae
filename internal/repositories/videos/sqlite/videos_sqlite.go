package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clipshare/be/pkg/gate/identity"
	vrepo "github.com/clipshare/be/pkg/repositories/videos"
	_ "modernc.org/sqlite"
)

const searchResultCap = 50

// SQLiteRepo is the SQLite-backed video metadata store.
type SQLiteRepo struct {
	db *sql.DB
}

var _ vrepo.Repository = (*SQLiteRepo)(nil)

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
CREATE TABLE IF NOT EXISTS videos (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    fingerprint TEXT NOT NULL,
    url TEXT NOT NULL,
    media_key TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL DEFAULT '',
    size INTEGER NOT NULL DEFAULT 0,
    uploaded TIMESTAMP NOT NULL,
    view_count INTEGER NOT NULL DEFAULT 0,
    likes INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_videos_fingerprint ON videos(fingerprint);
CREATE INDEX IF NOT EXISTS idx_videos_uploaded ON videos(uploaded);
`)
	return err
}

func (r *SQLiteRepo) Disconnect() { _ = r.db.Close() }

func (r *SQLiteRepo) Health() error { return r.db.Ping() }

const videoColumns = `id, title, description, tags, fingerprint, url, media_key, content_type, size, uploaded, view_count, likes`

func scanVideo(row interface{ Scan(...any) error }) (*vrepo.Video, error) {
	var v vrepo.Video
	var tags string
	err := row.Scan(&v.ID, &v.Title, &v.Description, &tags, &v.Fingerprint, &v.URL,
		&v.MediaKey, &v.ContentType, &v.Size, &v.Uploaded, &v.ViewCount, &v.Likes)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for video %s: %w", v.ID, err)
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return &v, nil
}

func (r *SQLiteRepo) Insert(ctx context.Context, v *vrepo.Video) error {
	if v.ID == "" {
		return errors.New("video id not set")
	}
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO videos (`+videoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Title, v.Description, string(encoded), v.Fingerprint, v.URL,
		v.MediaKey, v.ContentType, v.Size, v.Uploaded.UTC(), v.ViewCount, v.Likes)
	return err
}

func (r *SQLiteRepo) FindAll(ctx context.Context) ([]vrepo.Video, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY uploaded DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *SQLiteRepo) FindByKey(ctx context.Context, key identity.Key) (*vrepo.Video, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE `+keyClause(key)+` ORDER BY uploaded DESC LIMIT 1`, key.Value)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vrepo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *SQLiteRepo) Search(ctx context.Context, query string) ([]vrepo.Video, error) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return []vrepo.Video{}, nil
	}

	var clauses []string
	var args []any
	for _, w := range words {
		// User input must never act as wildcard syntax.
		pattern := "%" + escapeLike(w) + "%"
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	args = append(args, searchResultCap)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE `+strings.Join(clauses, " AND ")+
			` ORDER BY likes DESC, uploaded DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *SQLiteRepo) AddLike(ctx context.Context, key identity.Key) (int64, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	row := tx.QueryRowContext(ctx,
		`SELECT id FROM videos WHERE `+keyClause(key)+` ORDER BY uploaded DESC LIMIT 1`, key.Value)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, vrepo.ErrNotFound
		}
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE videos SET likes = likes + 1 WHERE id = ?`, id); err != nil {
		return 0, err
	}
	var likes int64
	if err := tx.QueryRowContext(ctx, `SELECT likes FROM videos WHERE id = ?`, id).Scan(&likes); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return likes, nil
}

func (r *SQLiteRepo) AddView(ctx context.Context, key identity.Key) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE videos SET view_count = view_count + 1 WHERE `+keyClause(key), key.Value)
	return err
}

func keyClause(key identity.Key) string {
	if key.Kind == identity.Fingerprint {
		return "fingerprint = ?"
	}
	return "id = ?"
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func collect(rows *sql.Rows) ([]vrepo.Video, error) {
	out := []vrepo.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
