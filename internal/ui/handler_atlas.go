package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/retroam/agileai/internal/atlas"
	"github.com/retroam/agileai/internal/model"
)

// Job states reported by the atlas endpoint.
const (
	atlasProcessing = "processing"
	atlasComplete   = "complete"
	atlasFailed     = "failed"
	atlasTimeout    = "timeout"
)

// atlasJob tracks one background topic mapping run.
type atlasJob struct {
	poller *atlas.Poller

	mu     sync.Mutex
	done   bool
	topics []atlas.TopicGroup
	err    error
}

func (j *atlasJob) finish(topics []atlas.TopicGroup, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.done = true
	j.topics = topics
	j.err = err
}

// status reports the job state, attempt number and outcome.
func (j *atlasJob) status() (string, int, []atlas.TopicGroup, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, attempt := j.poller.State()
	if !j.done {
		return atlasProcessing, attempt, nil, nil
	}
	if j.err == nil {
		return atlasComplete, attempt, j.topics, nil
	}
	if errors.Is(j.err, atlas.ErrPollTimeout) {
		return atlasTimeout, attempt, nil, j.err
	}
	return atlasFailed, attempt, nil, j.err
}

type atlasStatusPayload struct {
	State   string      `json:"state"`
	Attempt int         `json:"attempt,omitempty"`
	Topics  interface{} `json:"topics,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// getAtlasTopics serves hosted topic groups for a repository. The first
// request kicks off a background upload-and-poll run; later requests
// report its progress until the result lands in the cache.
func (h *Handler) getAtlasTopics(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}
	field := fieldParam(r)
	ctx := r.Context()

	cacheType := model.VizAtlasTopics + "_" + field
	payload, cacheErr := h.VizMd.Get(ctx, repo, cacheType, h.atlasCacheMaxAge())
	if cacheErr == nil {
		h.respond(w, r, http.StatusOK, atlasStatusPayload{
			State:  atlasComplete,
			Topics: json.RawMessage(payload),
		}, sourceCache)
		return
	}
	if !errors.Is(cacheErr, model.ErrCacheMiss) && !errors.Is(cacheErr, model.ErrCacheStale) {
		h.fail(w, r, http.StatusInternalServerError, "failed to read atlas cache: %v", cacheErr)
		return
	}

	key := repo + "|" + field

	h.mu.Lock()
	job := h.atlasJobs[key]
	h.mu.Unlock()

	if job != nil {
		state, attempt, topics, jobErr := job.status()
		if state != atlasProcessing {
			h.mu.Lock()
			delete(h.atlasJobs, key)
			h.mu.Unlock()
		}

		result := atlasStatusPayload{State: state, Attempt: attempt, Topics: topics}
		if jobErr != nil {
			result.Error = jobErr.Error()
		}
		h.respond(w, r, http.StatusOK, result, sourceGenerated)
		return
	}

	if h.Atlas == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "atlas api key is not configured")
		return
	}

	issues, err := h.loadIssues(ctx, repo)
	if err != nil {
		if errors.Is(err, errNotAnalyzed) {
			h.fail(w, r, http.StatusNotFound, "%v", err)
			return
		}
		h.fail(w, r, http.StatusInternalServerError, "failed to load issues: %v", err)
		return
	}
	rows := atlasRows(issues, field)

	h.mu.Lock()
	if existing := h.atlasJobs[key]; existing != nil {
		job = existing
	} else {
		job = &atlasJob{poller: atlas.NewPoller(
			time.Duration(h.Config.Atlas.PollIntervalSec)*time.Second,
			h.Config.Atlas.PollMaxAttempts,
		)}
		h.atlasJobs[key] = job
		go h.runAtlasJob(job, repo, field, cacheType, rows)
	}
	h.mu.Unlock()

	_, attempt := job.poller.State()
	h.respond(w, r, http.StatusAccepted, atlasStatusPayload{
		State:   atlasProcessing,
		Attempt: attempt,
	}, sourceGenerated)
}

// runAtlasJob uploads the rows and polls until the topic map is ready.
// It runs detached from the request so slow maps keep building after the
// client moves on.
func (h *Handler) runAtlasJob(job *atlasJob, repo, field, cacheType string, rows []atlas.Row) {
	ctx := context.Background()
	name := fmt.Sprintf("agileai-%s-%s", strings.ReplaceAll(repo, "/", "-"), field)

	datasetID, err := h.Atlas.CreateDataset(ctx, name, rows)
	if err != nil {
		h.Logger.Error(ctx, "Atlas dataset upload for %s failed: %v", repo, err)
		job.finish(nil, err)
		return
	}

	topics, err := job.poller.Run(ctx, func(ctx context.Context) ([]atlas.TopicGroup, error) {
		return h.Atlas.FetchTopics(ctx, datasetID)
	})
	if err != nil {
		h.Logger.Error(ctx, "Atlas topic poll for %s failed: %v", repo, err)
		job.finish(nil, err)
		return
	}

	encoded, err := json.Marshal(topics)
	if err != nil {
		job.finish(nil, err)
		return
	}
	if err := h.VizMd.Put(ctx, repo, cacheType, string(encoded)); err != nil {
		h.Logger.Warn(ctx, "Failed to cache atlas topics for %s: %v", repo, err)
	}
	h.Logger.Info(ctx, "Atlas mapped %s field %s into %d topic groups", repo, field, len(topics))
	job.finish(topics, nil)
}

func atlasRows(issues []model.Issue, field string) []atlas.Row {
	rows := make([]atlas.Row, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		text := strings.TrimSpace(issueText(issue, field))
		if text == "" {
			continue
		}
		rows = append(rows, atlas.Row{
			ID:    fmt.Sprintf("%d", issue.Number),
			Text:  text,
			State: issue.State,
		})
	}
	return rows
}
