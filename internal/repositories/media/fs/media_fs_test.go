package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root, "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Put(ctx, "videos/abc.mp4", "video/mp4", strings.NewReader("video bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/media/videos/abc.mp4", url)

	data, err := os.ReadFile(filepath.Join(root, "videos", "abc.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))

	require.NoError(t, s.Delete(ctx, "videos/abc.mp4"))
	_, err = os.Stat(filepath.Join(root, "videos", "abc.mp4"))
	assert.True(t, os.IsNotExist(err))

	// Deleting an absent key is not an error.
	assert.NoError(t, s.Delete(ctx, "videos/abc.mp4"))
}

func TestPutRejectsTraversal(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "/media")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../outside.bin", "application/octet-stream", strings.NewReader("x"))
	assert.Error(t, err)
}
