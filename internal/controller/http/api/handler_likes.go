package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clipshare/be/pkg/common/logger"
	"github.com/clipshare/be/pkg/gate/identity"
	videosRepo "github.com/clipshare/be/pkg/repositories/videos"
)

func (h *Handler) postLike(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoID string `json:"videoId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VideoID == "" {
		writeError(w, http.StatusBadRequest, "missing videoId")
		return
	}
	key, err := identity.Resolve(body.VideoID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid video id")
		return
	}
	likes, err := h.videos.AddLike(r.Context(), key)
	if errors.Is(err, videosRepo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		logger.Error("add like for %s: %v", key, err)
		writeError(w, http.StatusInternalServerError, "database error updating likes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"likes": likes})
}
