package ui

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/internal/topicmodel"
)

// maxArtifactBytes bounds the imported topic model payload.
const maxArtifactBytes = 16 << 20

// importTopics accepts a topic model artifact and stores it for the repo
// and field after validation. The page state switches to the imported data
// right away.
func (h *Handler) importTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.fail(w, r, http.StatusMethodNotAllowed, "use POST")
		return
	}
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}
	field := fieldParam(r)
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArtifactBytes))
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, "failed to read artifact body: %v", err)
		return
	}

	output, err := topicmodel.Decode(body)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid topic model artifact: %v", err)
		return
	}

	if err := h.VizMd.Put(ctx, repo, topicsCacheType(field), string(body)); err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to store artifact: %v", err)
		return
	}

	ctrl := h.controllerFor(repo)
	ctrl.FieldChanged(field)
	ctrl.TopicDataLoaded(output)

	h.respond(w, r, http.StatusOK, map[string]interface{}{
		"field":      field,
		"topicCount": len(output.Topics),
		"termCount":  len(output.Terms),
	}, sourceGenerated)
}

// getTopics serves the stored artifact as imported.
func (h *Handler) getTopics(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}
	field := fieldParam(r)

	payload, err := h.VizMd.Get(r.Context(), repo, topicsCacheType(field), h.atlasCacheMaxAge())
	if err != nil && !errors.Is(err, model.ErrCacheStale) {
		if errors.Is(err, model.ErrCacheMiss) {
			h.fail(w, r, http.StatusNotFound, "%v: %s field %s", errNoTopicModel, repo, field)
			return
		}
		h.fail(w, r, http.StatusInternalServerError, "failed to read topic artifact: %v", err)
		return
	}
	h.respond(w, r, http.StatusOK, json.RawMessage(payload), sourceCache)
}

// getTopicScene serves the positioned circles of the topic map.
func (h *Handler) getTopicScene(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}
	field := fieldParam(r)
	ctrl := h.controllerFor(repo)

	if err := h.ensureTopicData(r.Context(), ctrl, repo, field); err != nil {
		h.failTopicData(w, r, err)
		return
	}

	snap := ctrl.Snapshot()
	if snap.TopicScene == nil {
		h.fail(w, r, http.StatusNotFound, "topic model for %s field %s holds no topics", repo, field)
		return
	}
	h.respond(w, r, http.StatusOK, snap.TopicScene, sourceGenerated)
}

// getTopicPanel serves the word panel of the selected topic. The topic and
// lambda query parameters act as selection and slider events; lambda is
// clamped into [0, 1] here so the view never sees an out-of-range value.
func (h *Handler) getTopicPanel(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}
	field := fieldParam(r)
	ctrl := h.controllerFor(repo)

	if err := h.ensureTopicData(r.Context(), ctrl, repo, field); err != nil {
		h.failTopicData(w, r, err)
		return
	}

	if raw := r.URL.Query().Get("topic"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, http.StatusBadRequest, "topic must be an integer, got %q", raw)
			return
		}
		if !ctrl.TopicSelected(id) {
			h.fail(w, r, http.StatusNotFound, "unknown topic id %d", id)
			return
		}
	}

	if raw := r.URL.Query().Get("lambda"); raw != "" {
		lambda, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.fail(w, r, http.StatusBadRequest, "lambda must be a number, got %q", raw)
			return
		}
		if lambda < 0 {
			lambda = 0
		}
		if lambda > 1 {
			lambda = 1
		}
		ctrl.LambdaChanged(lambda)
	}

	snap := ctrl.Snapshot()
	if snap.TopicPanel == nil {
		h.fail(w, r, http.StatusNotFound, "no topic selected for %s field %s", repo, field)
		return
	}
	h.respond(w, r, http.StatusOK, snap.TopicPanel, sourceGenerated)
}

func (h *Handler) failTopicData(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errNoTopicModel) {
		h.fail(w, r, http.StatusNotFound, "%v", err)
		return
	}
	h.fail(w, r, http.StatusInternalServerError, "failed to load topic data: %v", err)
}
