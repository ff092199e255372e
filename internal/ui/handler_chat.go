package ui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/retroam/agileai/internal/chat"
)

type chatRequest struct {
	Repo     string `json:"repo"`
	Question string `json:"question"`
}

// postChat answers a free-form question about a repository's issues.
func (h *Handler) postChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.fail(w, r, http.StatusMethodNotAllowed, "use POST")
		return
	}
	if h.Chat == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "anthropic api key is not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	req.Repo = strings.TrimSpace(req.Repo)
	if req.Repo == "" || !strings.Contains(req.Repo, "/") {
		h.fail(w, r, http.StatusBadRequest, "repo must be owner/name")
		return
	}

	answer, err := h.Chat.Ask(r.Context(), req.Repo, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuestion):
			h.fail(w, r, http.StatusBadRequest, "%v", err)
		case errors.Is(err, chat.ErrNoIssues):
			h.fail(w, r, http.StatusNotFound, "%v", err)
		default:
			h.fail(w, r, http.StatusBadGateway, "chat failed: %v", err)
		}
		return
	}

	h.respond(w, r, http.StatusOK, answer, sourceGenerated)
}

// getCacheStatus reports when each derived payload of the repository was
// last stored.
func (h *Handler) getCacheStatus(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}

	status, err := h.VizMd.Status(r.Context(), repo)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to read cache status: %v", err)
		return
	}
	h.respond(w, r, http.StatusOK, status, sourceGenerated)
}

// clearCache drops derived payloads of the repository, all of them or one
// type. The page state resets so the next request rebuilds from storage.
func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.fail(w, r, http.StatusMethodNotAllowed, "use POST")
		return
	}
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}
	vizType := strings.TrimSpace(r.URL.Query().Get("type"))

	cleared, err := h.VizMd.Clear(r.Context(), repo, vizType)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to clear cache: %v", err)
		return
	}
	h.controllerFor(repo).Reset()

	h.respond(w, r, http.StatusOK, map[string]interface{}{
		"cleared": cleared,
	}, sourceGenerated)
}
