package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/clipshare/be/pkg/common/clientip"
	"github.com/clipshare/be/pkg/common/logger"
	"github.com/clipshare/be/pkg/gate/identity"
	"github.com/clipshare/be/pkg/gate/pipeline"
	videosRepo "github.com/clipshare/be/pkg/repositories/videos"
)

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	items, err := h.videos.FindAll(r.Context())
	if err != nil {
		logger.Error("list videos: %v", err)
		writeError(w, http.StatusInternalServerError, "database error retrieving videos")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request) {
	key, err := identity.Resolve(resolveParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid video id")
		return
	}
	v, err := h.videos.FindByKey(r.Context(), key)
	if errors.Is(err, videosRepo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		logger.Error("get video %s: %v", key, err)
		writeError(w, http.StatusInternalServerError, "database error fetching video")
		return
	}
	if err := h.videos.AddView(r.Context(), key); err != nil {
		logger.Warn("count view for %s: %v", key, err)
	}
	writeJSON(w, http.StatusOK, v)
}

// upload accepts a multipart video submission and runs it through the full
// admission pipeline.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	// Slack over the media cap covers the text fields and part framing.
	r.Body = http.MaxBytesReader(w, r.Body, pipeline.MaxUploadBytes+1<<20)
	file, header, err := parseUploadForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields or file")
		return
	}
	defer file.Close()

	dec, v := h.pipeline.CreateVideo(r.Context(), pipeline.UploadRequest{
		Title:           r.FormValue("title"),
		Description:     r.FormValue("description"),
		Tags:            splitTags(r.FormValue("tags")),
		FileName:        header.Filename,
		ContentType:     header.Header.Get("Content-Type"),
		Size:            header.Size,
		File:            file,
		Origin:          clientip.FromRequest(r),
		ClaimedSolution: r.FormValue("captchaText"),
		ChallengeToken:  r.FormValue("captchaToken"),
	})
	logDecision("upload", dec)
	if dec.Outcome != pipeline.Admitted {
		writeDecision(w, dec)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func parseUploadForm(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, nil, err
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		return nil, nil, err
	}
	return file, header, nil
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
