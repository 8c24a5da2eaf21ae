package videos

import (
	"context"
	"errors"
	"time"

	"github.com/clipshare/be/pkg/gate/identity"
)

// ErrNotFound is returned when no video matches the given key.
var ErrNotFound = errors.New("video not found")

// Video is a stored video document. Counters are concrete fields that
// default to zero at construction; readers never infer missing values.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Fingerprint string    `json:"fingerprint"`
	URL         string    `json:"url"`
	MediaKey    string    `json:"-"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Uploaded    time.Time `json:"uploaded"`
	ViewCount   int64     `json:"viewCount"`
	Likes       int64     `json:"likes"`
}

// Repository is the video metadata store.
type Repository interface {
	// Insert stores v. ID, Fingerprint and Uploaded must already be set.
	Insert(ctx context.Context, v *Video) error
	// FindAll lists all videos, newest first.
	FindAll(ctx context.Context) ([]Video, error)
	// FindByKey looks a video up by either identifier shape.
	// Returns ErrNotFound when absent.
	FindByKey(ctx context.Context, key identity.Key) (*Video, error)
	// Search matches every whitespace-separated word of query against
	// title, description and tags (substring, case-insensitive), sorted by
	// likes then upload time, capped at 50 results.
	Search(ctx context.Context, query string) ([]Video, error)
	// AddLike atomically increments the like counter and returns the new
	// count. Returns ErrNotFound when absent.
	AddLike(ctx context.Context, key identity.Key) (int64, error)
	// AddView bumps the view counter. Best-effort; absent keys are a no-op.
	AddView(ctx context.Context, key identity.Key) error

	Health() error
	Disconnect()
}
