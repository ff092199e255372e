// Package ingest pulls repository metadata and issue history from GitHub
// and lands it in storage, directly or through the kafka pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/internal/github_api"
	"github.com/retroam/agileai/internal/limiter"
	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/pkg/kafka"
	"github.com/retroam/agileai/pkg/log"
)

type Ingester struct {
	Logger   log.Logger
	Config   *cfg.Config
	Caller   *githubapi.Caller
	Limiter  *limiter.RateLimiter
	Repo     *model.Repo
	Issue    *model.Issue
	VizCache *model.VizCache

	// Producer is optional. When wired, issues go through kafka instead
	// of straight into MySQL.
	Producer *kafka.Producer
}

func NewIngester(
	config *cfg.Config,
	logger log.Logger,
	caller *githubapi.Caller,
	repo *model.Repo,
	issue *model.Issue,
	vizCache *model.VizCache,
	producer *kafka.Producer,
) (*Ingester, error) {
	return &Ingester{
		Logger:   logger,
		Config:   config,
		Caller:   caller,
		Limiter:  limiter.NewRateLimiter(config.GithubApi.RequestsPerSecond),
		Repo:     repo,
		Issue:    issue,
		VizCache: vizCache,
		Producer: producer,
	}, nil
}

// SyncResult reports what one repository sync did.
type SyncResult struct {
	RepoName   string `json:"repo_name"`
	IssueCount int    `json:"issue_count"`
	Published  bool   `json:"published"`
}

// Sync fetches a repository's metadata and full issue history. The repo
// row is upserted first so a later issue failure still leaves the header
// usable. Derived caches of the repository are invalidated at the end.
func (ing *Ingester) Sync(ctx context.Context, fullName string) (*SyncResult, error) {
	fullName = strings.TrimSpace(fullName)
	if !strings.Contains(fullName, "/") {
		return nil, fmt.Errorf("repository must be owner/name, got %q", fullName)
	}

	var repoResp *githubapi.RepoResponse
	err := ing.withRateLimitRetry(ctx, func() error {
		if err := ing.Limiter.Wait(ctx); err != nil {
			return err
		}
		var apiErr error
		repoResp, apiErr = ing.Caller.GetRepository(ctx, fullName)
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	if err := ing.Repo.Upsert(ctx, repoRow(repoResp)); err != nil {
		return nil, err
	}

	var issues []githubapi.IssueResponse
	err = ing.withRateLimitRetry(ctx, func() error {
		if err := ing.Limiter.Wait(ctx); err != nil {
			return err
		}
		var apiErr error
		issues, apiErr = ing.Caller.ListIssues(ctx, fullName)
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	messages := issueMessages(fullName, issues)
	result := &SyncResult{RepoName: fullName, IssueCount: len(messages)}

	if ing.Producer != nil {
		for _, msg := range messages {
			if err := ing.Producer.Publish(ctx, "issue", msg); err != nil {
				return nil, fmt.Errorf("publish issue #%d: %w", msg.Number, err)
			}
		}
		result.Published = true
	} else if len(messages) > 0 {
		if err := ing.Issue.CreateBatch(messages); err != nil {
			return nil, err
		}
	}

	if _, err := ing.VizCache.Clear(ctx, fullName, ""); err != nil {
		ing.Logger.Warn(ctx, "Failed to clear derived caches of %s: %v", fullName, err)
	}

	ing.Logger.Info(ctx, "Synced %s: %d issues, published=%v", fullName, result.IssueCount, result.Published)
	return result, nil
}

// SyncRepoInfo refreshes only the repository metadata row, leaving stored
// issues and derived caches untouched.
func (ing *Ingester) SyncRepoInfo(ctx context.Context, fullName string) (*model.Repo, error) {
	fullName = strings.TrimSpace(fullName)
	if !strings.Contains(fullName, "/") {
		return nil, fmt.Errorf("repository must be owner/name, got %q", fullName)
	}

	var repoResp *githubapi.RepoResponse
	err := ing.withRateLimitRetry(ctx, func() error {
		if err := ing.Limiter.Wait(ctx); err != nil {
			return err
		}
		var apiErr error
		repoResp, apiErr = ing.Caller.GetRepository(ctx, fullName)
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	row := repoRow(repoResp)
	if err := ing.Repo.Upsert(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// withRateLimitRetry runs op and, when GitHub reports an exhausted rate
// limit, waits out the reset and retries once.
func (ing *Ingester) withRateLimitRetry(ctx context.Context, op func() error) error {
	err := op()
	var rateErr *githubapi.RateLimitError
	if !errors.As(err, &rateErr) {
		return err
	}

	wait := time.Until(rateErr.ResetAt)
	if wait < 0 {
		wait = 0
	}
	ing.Logger.Warn(ctx, "Github rate limit exhausted, waiting %s until reset", wait.Round(time.Second))

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	return op()
}

func repoRow(resp *githubapi.RepoResponse) *model.Repo {
	return &model.Repo{
		FullName:    resp.FullName,
		Owner:       resp.Owner.Login,
		Name:        resp.Name,
		Description: resp.Description,
		Language:    resp.Language,
		Stars:       resp.StargazersCount,
		Forks:       resp.ForksCount,
		OpenIssues:  resp.OpenIssuesCount,
		Subscribers: resp.SubscribersCount,
		HtmlUrl:     resp.HtmlUrl,
		PushedAt:    resp.PushedAt,
		FetchedAt:   time.Now(),
	}
}

func issueMessages(fullName string, issues []githubapi.IssueResponse) []model.IssueMessage {
	messages := make([]model.IssueMessage, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		messages = append(messages, model.IssueMessage{
			ID:               issue.ID,
			RepoName:         fullName,
			Number:           issue.Number,
			Title:            issue.Title,
			Body:             issue.Body,
			State:            issue.State,
			Author:           issue.User.Login,
			Comments:         issue.Comments,
			Labels:           model.JoinLabels(issue.LabelNames()),
			HtmlUrl:          issue.HtmlUrl,
			CreatedAt:        issue.CreatedAt,
			UpdatedAt:        issue.UpdatedAt,
			ClosedAt:         issue.ClosedAt,
			TimeToCloseHours: issue.TimeToCloseHours(),
		})
	}
	return messages
}
