package api

import (
	"net/http"
	"strings"

	"github.com/clipshare/be/pkg/common/logger"
	videosRepo "github.com/clipshare/be/pkg/repositories/videos"
)

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusOK, []videosRepo.Video{})
		return
	}
	items, err := h.videos.Search(r.Context(), query)
	if err != nil {
		logger.Error("search %q: %v", query, err)
		writeError(w, http.StatusInternalServerError, "unexpected error performing search")
		return
	}
	writeJSON(w, http.StatusOK, items)
}
