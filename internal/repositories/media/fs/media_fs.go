// Package fs stores media bytes on the local filesystem. Stands in for an
// object store in single-instance deployments; the pipeline only sees the
// media.Store interface.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/clipshare/be/pkg/repositories/media"
)

type FSStore struct {
	root    string
	baseURL string
}

var _ media.Store = (*FSStore)(nil)

// NewFSStore stores objects under root and builds public URLs off baseURL
// (e.g. "/media").
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the storage directory, for wiring a static file server.
func (s *FSStore) Root() string { return s.root }

func (s *FSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	target, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	// Write to a temp file first so a failed upload never leaves a
	// half-written object at the final key.
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	err = os.Remove(target)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// resolve rejects keys that would escape the storage root.
func (s *FSStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
