package ui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/retroam/agileai/internal/insights"
	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/internal/wordcloud"
)

// serveCachedViz is the cache-or-compute flow shared by the derived data
// endpoints. A fresh cache row answers directly; otherwise build runs and
// the result is stored. When build fails over a stale row, the stale
// payload still answers.
func (h *Handler) serveCachedViz(
	w http.ResponseWriter,
	r *http.Request,
	repo, vizType string,
	maxAge time.Duration,
	build func(ctx context.Context) (interface{}, error),
) {
	ctx := r.Context()

	payload, cacheErr := h.VizMd.Get(ctx, repo, vizType, maxAge)
	if cacheErr == nil {
		h.respond(w, r, http.StatusOK, json.RawMessage(payload), sourceCache)
		return
	}
	if !errors.Is(cacheErr, model.ErrCacheMiss) && !errors.Is(cacheErr, model.ErrCacheStale) {
		h.fail(w, r, http.StatusInternalServerError, "failed to read %s cache: %v", vizType, cacheErr)
		return
	}

	data, err := build(ctx)
	if err != nil {
		if errors.Is(cacheErr, model.ErrCacheStale) {
			h.Logger.Warn(ctx, "Serving stale %s for %s, rebuild failed: %v", vizType, repo, err)
			h.respond(w, r, http.StatusOK, json.RawMessage(payload), sourceCache)
			return
		}
		if errors.Is(err, errNotAnalyzed) {
			h.fail(w, r, http.StatusNotFound, "%v", err)
			return
		}
		h.fail(w, r, http.StatusInternalServerError, "failed to build %s: %v", vizType, err)
		return
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to encode %s: %v", vizType, err)
		return
	}
	if err := h.VizMd.Put(ctx, repo, vizType, string(encoded)); err != nil {
		h.Logger.Warn(ctx, "Failed to store %s for %s: %v", vizType, repo, err)
	}
	h.respond(w, r, http.StatusOK, json.RawMessage(encoded), sourceGenerated)
}

// getInsights serves the issue statistics summary.
func (h *Handler) getInsights(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}

	h.serveCachedViz(w, r, repo, model.VizInsights, h.cacheMaxAge(), func(ctx context.Context) (interface{}, error) {
		issues, err := h.loadIssues(ctx, repo)
		if err != nil {
			return nil, err
		}
		return insights.Build(insightIssues(issues)), nil
	})
}

type wordcloudPayload struct {
	Field   string                  `json:"field"`
	Words   []wordcloud.Word        `json:"words"`
	Treemap []wordcloud.TreemapNode `json:"treemap"`
}

// getWordcloud serves word frequencies and treemap children for one issue
// text field, cached per repo and field.
func (h *Handler) getWordcloud(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}
	field := fieldParam(r)

	vizType := model.VizWordcloud + "_" + field
	h.serveCachedViz(w, r, repo, vizType, h.cacheMaxAge(), func(ctx context.Context) (interface{}, error) {
		issues, err := h.loadIssues(ctx, repo)
		if err != nil {
			return nil, err
		}

		texts := make([]string, 0, len(issues))
		for i := range issues {
			texts = append(texts, issueText(&issues[i], field))
		}
		counts := wordcloud.Count(texts)

		return wordcloudPayload{
			Field:   field,
			Words:   wordcloud.Top(counts, h.Config.Analyzer.WordcloudMaxWords),
			Treemap: wordcloud.Treemap(counts, h.Config.Analyzer.TreemapMaxWords),
		}, nil
	})
}

func insightIssues(issues []model.Issue) []insights.Issue {
	rows := make([]insights.Issue, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		rows = append(rows, insights.Issue{
			State:            issue.State,
			Author:           issue.Author,
			Comments:         issue.Comments,
			CreatedAt:        issue.IssueCreatedAt,
			ClosedAt:         issue.ClosedAt,
			TimeToCloseHours: issue.TimeToCloseHours,
		})
	}
	return rows
}
