package api

import (
	"encoding/json"
	"net/http"

	"github.com/clipshare/be/pkg/common/clientip"
	"github.com/clipshare/be/pkg/common/logger"
	"github.com/clipshare/be/pkg/gate/identity"
	"github.com/clipshare/be/pkg/gate/pipeline"
)

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	key, err := identity.Resolve(resolveParam(r, "videoId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid video id")
		return
	}
	items, err := h.comments.ListForVideo(r.Context(), key)
	if err != nil {
		logger.Error("list comments for %s: %v", key, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch comments")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type commentBody struct {
	VideoID      string `json:"videoId"`
	Content      string `json:"content"`
	CaptchaText  string `json:"captchaText"`
	CaptchaToken string `json:"captchaToken"`
}

func (h *Handler) postComment(w http.ResponseWriter, r *http.Request) {
	var body commentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	dec, c := h.pipeline.SubmitComment(r.Context(), pipeline.CommentRequest{
		TargetID:        body.VideoID,
		Content:         body.Content,
		Origin:          clientip.FromRequest(r),
		ClaimedSolution: body.CaptchaText,
		ChallengeToken:  body.CaptchaToken,
	})
	logDecision("comment", dec)
	if dec.Outcome != pipeline.Admitted {
		writeDecision(w, dec)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
