package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestClassifyFlagged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/moderations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "some nasty text", req.Input)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{
				"flagged":    true,
				"categories": map[string]bool{"harassment": true, "violence": false},
			}},
		})
	}))
	defer srv.Close()

	c, err := New("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	res, err := c.Classify(context.Background(), "some nasty text")
	require.NoError(t, err)
	assert.True(t, res.Flagged)
	assert.Equal(t, []string{"harassment"}, res.Categories)
}

func TestClassifyClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"flagged": false, "categories": map[string]bool{}}},
		})
	}))
	defer srv.Close()

	c, err := New("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	res, err := c.Classify(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, res.Flagged)
	assert.Empty(t, res.Categories)
}

func TestClassifyUpstreamErrors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c, err := New("test-key", WithBaseURL(srv.URL))
		require.NoError(t, err)
		_, err = c.Classify(context.Background(), "x")
		assert.Error(t, err)
	})

	t.Run("empty results", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
		}))
		defer srv.Close()

		c, err := New("test-key", WithBaseURL(srv.URL))
		require.NoError(t, err)
		_, err = c.Classify(context.Background(), "x")
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		c, err := New("test-key", WithBaseURL(srv.URL))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = c.Classify(ctx, "x")
		assert.Error(t, err)
	})
}
