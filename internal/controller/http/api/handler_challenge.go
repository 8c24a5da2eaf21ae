package api

import (
	"encoding/base64"
	"net/http"

	"github.com/clipshare/be/pkg/common/logger"
)

// issueChallenge returns a fresh challenge image with its token. The client
// must echo the token, together with the solved text, on its next
// submission.
func (h *Handler) issueChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := h.challenges.Issue()
	if err != nil {
		logger.Error("issue challenge: %v", err)
		writeError(w, http.StatusInternalServerError, "try again later")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"image": base64.StdEncoding.EncodeToString(ch.Image),
		"token": ch.Token,
	})
}
