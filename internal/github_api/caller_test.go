package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/log"
)

func testCaller(t *testing.T, apiUrl string) *Caller {
	t.Helper()
	loader, _ := cfg.NewMockLoader()
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	config.GithubApi.ApiUrl = apiUrl
	config.GithubApi.AccessToken = "test-token"
	return NewCaller(log.NewNopLogger(), config)
}

func TestGetRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/octocat/hello" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "token test-token" {
			t.Errorf("missing token header, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github.v3+json" {
			t.Errorf("unexpected accept header %q", got)
		}
		fmt.Fprint(w, `{"id":1,"name":"hello","full_name":"octocat/hello",
			"owner":{"login":"octocat"},"stargazers_count":42,"forks_count":7,
			"open_issues_count":3,"subscribers_count":11,"language":"Go"}`)
	}))
	defer srv.Close()

	caller := testCaller(t, srv.URL)
	repo, err := caller.GetRepository(context.Background(), "octocat/hello")
	if err != nil {
		t.Fatalf("GetRepository: %v", err)
	}
	if repo.FullName != "octocat/hello" || repo.StargazersCount != 42 {
		t.Errorf("unexpected repo: %+v", repo)
	}
	if repo.Owner.Login != "octocat" {
		t.Errorf("owner not decoded: %+v", repo.Owner)
	}
}

func TestListIssuesPaginationAndPRFilter(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "all" && r.URL.Query().Get("page") == "" {
			t.Errorf("expected state=all on first page, got %q", got)
		}
		page := r.URL.Query().Get("page")
		switch page {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/octocat/hello/issues?state=all&per_page=100&page=2>; rel="next", <%s/repos/octocat/hello/issues?page=2>; rel="last"`, srv.URL, srv.URL))
			fmt.Fprint(w, `[
				{"id":1,"number":1,"title":"bug one","state":"open","user":{"login":"alice"}},
				{"id":2,"number":2,"title":"pr","state":"open","user":{"login":"bob"},"pull_request":{"url":"x"}}
			]`)
		case "2":
			fmt.Fprint(w, `[{"id":3,"number":3,"title":"bug two","state":"closed","user":{"login":"carol"},
				"created_at":"2024-01-01T00:00:00Z","closed_at":"2024-01-03T12:00:00Z"}]`)
		default:
			t.Errorf("unexpected page %q", page)
			fmt.Fprint(w, `[]`)
		}
	}))
	defer srv.Close()

	caller := testCaller(t, srv.URL)
	issues, err := caller.ListIssues(context.Background(), "octocat/hello")
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}

	if len(issues) != 2 {
		t.Fatalf("expected 2 issues after PR filtering, got %d", len(issues))
	}
	if issues[0].Number != 1 || issues[1].Number != 3 {
		t.Errorf("unexpected issue numbers: %d, %d", issues[0].Number, issues[1].Number)
	}

	ttc := issues[1].TimeToCloseHours()
	if ttc == nil {
		t.Fatal("expected time to close for closed issue")
	}
	if want := 60.0; *ttc != want {
		t.Errorf("time to close = %v hours, want %v", *ttc, want)
	}
	if issues[0].TimeToCloseHours() != nil {
		t.Error("open issue should have nil time to close")
	}
}

func TestListIssuesRateLimit(t *testing.T) {
	resetAt := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	caller := testCaller(t, srv.URL)
	_, err := caller.ListIssues(context.Background(), "octocat/hello")
	if err == nil {
		t.Fatal("expected rate limit error")
	}

	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if !rle.ResetAt.Equal(resetAt) {
		t.Errorf("reset at = %v, want %v", rle.ResetAt, resetAt)
	}
}

func TestParseNextLink(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "next present",
			header: `<https://api.github.com/repos/a/b/issues?page=2>; rel="next", <https://api.github.com/repos/a/b/issues?page=5>; rel="last"`,
			want:   "https://api.github.com/repos/a/b/issues?page=2",
		},
		{
			name:   "last page",
			header: `<https://api.github.com/repos/a/b/issues?page=1>; rel="first", <https://api.github.com/repos/a/b/issues?page=1>; rel="prev"`,
			want:   "",
		},
		{name: "empty header", header: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseNextLink(tt.header); got != tt.want {
				t.Errorf("parseNextLink(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
