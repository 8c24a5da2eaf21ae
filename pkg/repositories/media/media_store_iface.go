package media

import (
	"context"
	"io"
)

// Store holds raw media bytes. The backend (filesystem, S3) is a deployment
// concern; the pipeline only needs Put to be durable before it reports an
// upload admitted.
type Store interface {
	// Put streams r into the object named key and returns its public URL.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Delete removes the object. Absent keys are not an error.
	Delete(ctx context.Context, key string) error
}
