// Package githubapi talks to the GitHub REST API on behalf of the analyzer.
// It fetches repository metadata and the full issue history, authenticating
// with an access token when one is configured and surfacing rate limits as
// typed errors so callers can decide whether to wait.
package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/log"
)

const issuesPerPage = 100

// RateLimitError reports an exhausted API quota and when it resets.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github api rate limit reached, resets at %s", e.ResetAt.Format(time.RFC3339))
}

type Caller struct {
	Logger log.Logger
	Config *cfg.Config
	client *http.Client
}

func NewCaller(logger log.Logger, config *cfg.Config) *Caller {
	return &Caller{
		Logger: logger,
		Config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Caller) newRequest(ctx context.Context, rawUrl string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawUrl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.Config.GithubApi.AccessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s", c.Config.GithubApi.AccessToken))
	}
	return req, nil
}

// handleRateLimit converts a quota-exhausted response into a RateLimitError.
func (c *Caller) handleRateLimit(ctx context.Context, resp *http.Response) error {
	if resp.StatusCode != http.StatusForbidden || resp.Header.Get("X-RateLimit-Remaining") != "0" {
		return nil
	}

	resetAt := time.Now().Add(time.Duration(c.Config.GithubApi.RateLimitResetMin) * time.Minute)
	if resetTimeInt, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if t := time.Unix(resetTimeInt, 0); t.After(time.Now()) {
			resetAt = t
		}
	}

	c.Logger.Warn(ctx, "GitHub API rate limit hit, resets at %s", resetAt.Format(time.RFC3339))
	return &RateLimitError{ResetAt: resetAt}
}

// GetRepository fetches the metadata of owner/name.
func (c *Caller) GetRepository(ctx context.Context, fullName string) (*RepoResponse, error) {
	fullUrl := fmt.Sprintf("%s/repos/%s", strings.TrimRight(c.Config.GithubApi.ApiUrl, "/"), fullName)
	c.Logger.Info(ctx, "Calling GitHub API: %s", fullUrl)

	req, err := c.newRequest(ctx, fullUrl)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.Logger.Error(ctx, "Cannot send request: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.handleRateLimit(ctx, resp); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("repository %s not found", fullName)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response from github api: %s", resp.Status)
	}

	repo := &RepoResponse{}
	if err := json.NewDecoder(resp.Body).Decode(repo); err != nil {
		return nil, err
	}
	return repo, nil
}

// ListIssues fetches every issue of owner/name, all states, following the
// Link header until the last page. Pull requests are dropped: the listing
// endpoint returns both kinds.
func (c *Caller) ListIssues(ctx context.Context, fullName string) ([]IssueResponse, error) {
	base := fmt.Sprintf("%s/repos/%s/issues?state=all&per_page=%d",
		strings.TrimRight(c.Config.GithubApi.ApiUrl, "/"), fullName, issuesPerPage)

	var issues []IssueResponse
	nextUrl := base
	for page := 1; nextUrl != ""; page++ {
		c.Logger.Info(ctx, "Fetching issues page %d for %s", page, fullName)

		req, err := c.newRequest(ctx, nextUrl)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			c.Logger.Error(ctx, "Cannot send request: %v", err)
			return nil, err
		}

		if err := c.handleRateLimit(ctx, resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected response from github api: %s", resp.Status)
		}

		var pageItems []IssueResponse
		if err := json.NewDecoder(resp.Body).Decode(&pageItems); err != nil {
			resp.Body.Close()
			return nil, err
		}
		link := resp.Header.Get("Link")
		resp.Body.Close()

		for _, item := range pageItems {
			if item.PullRequest != nil {
				continue
			}
			issues = append(issues, item)
		}

		nextUrl = parseNextLink(link)
	}

	c.Logger.Info(ctx, "Fetched %d issues for %s", len(issues), fullName)
	return issues, nil
}

// parseNextLink extracts the rel="next" target from a Link header, or ""
// when the current page is the last one.
func parseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) != `rel="next"` {
			continue
		}
		target := strings.Trim(strings.TrimSpace(section[0]), "<>")
		if _, err := url.Parse(target); err != nil {
			return ""
		}
		return target
	}
	return ""
}
