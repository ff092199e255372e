package ui

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/retroam/agileai/internal/dashboard"
	"github.com/retroam/agileai/internal/model"
)

// getRepository serves the repository header. A row fetched within the
// cache window is served as-is; otherwise the metadata is refreshed from
// the GitHub API. A stale row still answers when the refresh fails.
func (h *Handler) getRepository(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	row, err := h.RepoMd.Get(ctx, repo)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		h.fail(w, r, http.StatusInternalServerError, "failed to read repository: %v", err)
		return
	}

	source := sourceCache
	if !h.RepoMd.Fresh(row, h.cacheMaxAge()) {
		fetched, fetchErr := h.Ingester.SyncRepoInfo(ctx, repo)
		if fetchErr != nil {
			if row == nil {
				h.fail(w, r, http.StatusBadGateway, "failed to fetch repository %s: %v", repo, fetchErr)
				return
			}
			h.Logger.Warn(ctx, "Serving stale metadata for %s, refresh failed: %v", repo, fetchErr)
		} else {
			row = fetched
			source = sourceApi
		}
	}

	info := h.repoInfo(ctx, row)
	h.controllerFor(repo).RepositoryLoaded(info)
	h.respond(w, r, http.StatusOK, info, source)
}

// refreshRepository re-syncs metadata and the full issue history, then
// rebuilds the page state from the fresh rows.
func (h *Handler) refreshRepository(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.fail(w, r, http.StatusMethodNotAllowed, "use POST")
		return
	}
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	result, err := h.Ingester.Sync(ctx, repo)
	if err != nil {
		h.fail(w, r, http.StatusBadGateway, "failed to sync %s: %v", repo, err)
		return
	}

	ctrl := h.controllerFor(repo)
	ctrl.Reset()
	if row, rowErr := h.RepoMd.Get(ctx, repo); rowErr == nil {
		ctrl.RepositoryLoaded(h.repoInfo(ctx, row))
	}
	if issues, listErr := h.IssueMd.AllByRepo(ctx, repo); listErr == nil && len(issues) > 0 {
		ctrl.IssuesLoaded(dashboardIssues(issues, ctrl.Field()))
	}

	h.respond(w, r, http.StatusOK, result, sourceApi)
}

// getIssues serves one page of stored issues, newest number first.
func (h *Handler) getIssues(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repoParam(w, r)
	if !ok {
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 25
	}

	rows, total, err := h.IssueMd.ListByRepo(r.Context(), repo, page, pageSize)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to fetch issues: %v", err)
		return
	}

	h.respond(w, r, http.StatusOK, map[string]interface{}{
		"issues": rows,
		"pagination": map[string]interface{}{
			"page":       page,
			"pageSize":   pageSize,
			"totalCount": total,
			"totalPages": (total + int64(pageSize) - 1) / int64(pageSize),
		},
	}, sourceCache)
}

func (h *Handler) repoInfo(ctx context.Context, row *model.Repo) dashboard.RepoInfo {
	info := dashboard.RepoInfo{
		FullName:    row.FullName,
		Description: row.Description,
		Stars:       row.Stars,
		Forks:       row.Forks,
		OpenIssues:  row.OpenIssues,
		Language:    row.Language,
	}
	if count, err := h.IssueMd.CountByRepo(ctx, row.FullName); err == nil {
		info.IssueCount = int(count)
	}
	return info
}
