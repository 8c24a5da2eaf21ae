package comments

import (
	"context"
	"time"

	"github.com/clipshare/be/pkg/gate/identity"
)

// Comment targets a video by exactly one of the two identifier shapes:
// VideoID for opaque-id targets, Fingerprint for content-hash targets.
type Comment struct {
	ID          string    `json:"id"`
	VideoID     string    `json:"videoId,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Content     string    `json:"content"`
	Created     time.Time `json:"created"`
}

// Target sets the comment's target fields from a resolved key.
func (c *Comment) Target(key identity.Key) {
	if key.Kind == identity.Fingerprint {
		c.Fingerprint = key.Value
		c.VideoID = ""
		return
	}
	c.VideoID = key.Value
	c.Fingerprint = ""
}

type Repository interface {
	// Insert stores c. ID and Created must already be set.
	Insert(ctx context.Context, c *Comment) error
	// ListForVideo returns the comments targeting key, oldest first.
	ListForVideo(ctx context.Context, key identity.Key) ([]Comment, error)

	Disconnect()
}
