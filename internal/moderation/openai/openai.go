// Package openai implements the moderation classifier against the OpenAI
// moderations endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clipshare/be/pkg/gate/moderation"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 10 * time.Second
)

// ErrMissingAPIKey is returned at construction when no key is supplied.
// Moderation is a required check, so a missing key is a startup failure,
// not something to silently skip at request time.
var ErrMissingAPIKey = errors.New("openai: api key not configured")

type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

var _ moderation.Classifier = (*Client)(nil)

type Option func(*Client)

// WithBaseURL points the client at a different endpoint (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

// Classify submits text and returns the first result's verdict. Transport
// errors, non-2xx statuses, and malformed replies all return errors; the
// caller treats any of them as a failed (blocking) check.
func (c *Client) Classify(ctx context.Context, text string) (moderation.Result, error) {
	body, err := json.Marshal(moderationRequest{Input: text})
	if err != nil {
		return moderation.Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/moderations", bytes.NewReader(body))
	if err != nil {
		return moderation.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return moderation.Result{}, fmt.Errorf("moderations request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Body may carry an API error message; cap what we read.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return moderation.Result{}, fmt.Errorf("moderations status %d: %s", resp.StatusCode, snippet)
	}

	var parsed moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return moderation.Result{}, fmt.Errorf("decode moderations response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return moderation.Result{}, errors.New("moderations response has no results")
	}

	res := parsed.Results[0]
	var categories []string
	for name, hit := range res.Categories {
		if hit {
			categories = append(categories, name)
		}
	}
	return moderation.Result{Flagged: res.Flagged, Categories: categories}, nil
}
