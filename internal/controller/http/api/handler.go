// Package api exposes the video-sharing endpoints and maps pipeline
// decisions onto transport responses.
package api

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clipshare/be/pkg/common/clientip"
	"github.com/clipshare/be/pkg/common/logger"
	"github.com/clipshare/be/pkg/common/throttle"
	"github.com/clipshare/be/pkg/gate/challenge"
	"github.com/clipshare/be/pkg/gate/pipeline"
	commentsRepo "github.com/clipshare/be/pkg/repositories/comments"
	videosRepo "github.com/clipshare/be/pkg/repositories/videos"
)

type Handler struct {
	pipeline   *pipeline.Pipeline
	challenges *challenge.Service
	videos     videosRepo.Repository
	comments   commentsRepo.Repository
	challengeT *throttle.Store
}

// NewHandler constructs the API handler with explicit collaborators.
func NewHandler(p *pipeline.Pipeline, ch *challenge.Service, v videosRepo.Repository, c commentsRepo.Repository, challengeThrottle *throttle.Store) *Handler {
	return &Handler{
		pipeline:   p,
		challenges: ch,
		videos:     v,
		comments:   c,
		challengeT: challengeThrottle,
	}
}

// Router returns a chi-based router for the /api endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/health", h.health)

	r.With(throttle.Middleware(h.challengeT, clientip.FromRequest)).
		Get("/api/captcha", h.issueChallenge)

	r.Get("/api/videos", h.listVideos)
	r.Get("/api/videos/{id}", h.getVideo)
	r.Get("/api/search", h.search)
	r.Post("/api/upload", h.upload)

	r.Get("/api/comments/{videoId}", h.listComments)
	r.Post("/api/comments", h.postComment)

	r.Post("/api/likes", h.postLike)
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.videos.Health(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDecision maps a non-admitted pipeline decision onto the wire. Input
// rejections carry their field-specific message; everything else is generic
// so classifier details and challenge internals never leak.
func writeDecision(w http.ResponseWriter, dec pipeline.Decision) {
	switch dec.Outcome {
	case pipeline.RejectedInput:
		writeError(w, http.StatusBadRequest, dec.Message)
	case pipeline.RejectedChallenge:
		writeError(w, http.StatusBadRequest, "incorrect answer")
	case pipeline.RateLimited:
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":             "rate limit exceeded",
			"retryAfterSeconds": retryAfterSeconds(dec),
		})
	case pipeline.RejectedModeration:
		writeError(w, http.StatusBadRequest, "content violates guidelines")
	default:
		writeError(w, http.StatusInternalServerError, "try again later")
	}
}

func retryAfterSeconds(dec pipeline.Decision) int64 {
	return int64(math.Ceil(dec.RetryAfter.Seconds()))
}

func resolveParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func logDecision(op string, dec pipeline.Decision) {
	if dec.Outcome == pipeline.Admitted {
		logger.Debug("%s: admitted", op)
		return
	}
	logger.Debug("%s: %s", op, dec.Outcome)
}
