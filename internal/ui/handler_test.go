package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/pkg/log"
)

func testHandler() *Handler {
	return &Handler{Logger: log.NewNopLogger()}
}

func TestFieldParam(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "field=title", want: "title"},
		{query: "field=body", want: "body"},
		{query: "field=labels", want: "labels"},
		{query: "field=all", want: "all"},
		{query: "field=", want: "all"},
		{query: "", want: "all"},
		{query: "field=bogus", want: "all"},
		{query: "field=%20title%20", want: "title"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/wordcloud?"+tt.query, nil)
			if got := fieldParam(r); got != tt.want {
				t.Errorf("fieldParam(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestIssueText(t *testing.T) {
	issue := &model.Issue{
		Title:  "panic on empty input",
		Body:   "happens on v2.1",
		Labels: `["bug","parser"]`,
	}

	tests := []struct {
		field string
		want  string
	}{
		{field: fieldTitle, want: "panic on empty input"},
		{field: fieldBody, want: "happens on v2.1"},
		{field: fieldLabels, want: "bug parser"},
		{field: fieldAll, want: "panic on empty input happens on v2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if got := issueText(issue, tt.field); got != tt.want {
				t.Errorf("issueText(%s) = %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestRepoParam(t *testing.T) {
	h := testHandler()

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/insights?repo=octocat/hello", nil)
		w := httptest.NewRecorder()
		repo, ok := h.repoParam(w, r)
		if !ok || repo != "octocat/hello" {
			t.Fatalf("repoParam = %q, %v", repo, ok)
		}
	})

	t.Run("trims whitespace", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/insights?repo=%20octocat/hello%20", nil)
		w := httptest.NewRecorder()
		repo, ok := h.repoParam(w, r)
		if !ok || repo != "octocat/hello" {
			t.Fatalf("repoParam = %q, %v", repo, ok)
		}
	})

	for _, bad := range []string{"", "noslash", "%20%20"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/insights?repo="+bad, nil)
			w := httptest.NewRecorder()
			if _, ok := h.repoParam(w, r); ok {
				t.Fatal("expected rejection")
			}
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}

			var env envelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if env.Status != "error" || !strings.Contains(env.Error, "owner/name") {
				t.Errorf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestRespondEnvelope(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/insights?repo=octocat/hello", nil)
	w := httptest.NewRecorder()

	h.respond(w, r, http.StatusOK, map[string]int{"n": 3}, sourceCache)

	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}
	var env struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
		Source string         `json:"source"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Status != "ok" || env.Source != sourceCache || env.Data["n"] != 3 {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestFailEnvelope(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/insights", nil)
	w := httptest.NewRecorder()

	h.fail(w, r, http.StatusNotFound, "no such repo %s", "octocat/hello")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Status != "error" || env.Error != "no such repo octocat/hello" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if env.Data != nil || env.Source != "" {
		t.Errorf("error envelope should omit data and source: %+v", env)
	}
}

func TestTopicsCacheType(t *testing.T) {
	if got := topicsCacheType("title"); got != "topics_title" {
		t.Errorf("topicsCacheType(title) = %q", got)
	}
	if got := topicsCacheType("all"); got != "topics_all" {
		t.Errorf("topicsCacheType(all) = %q", got)
	}
}

func TestDashboardIssues(t *testing.T) {
	closed := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	hours := 48.0
	rows := []model.Issue{
		{
			Title:            "crash report",
			Body:             "details",
			State:            "closed",
			Author:           "alice",
			Comments:         4,
			Labels:           `["bug"]`,
			IssueCreatedAt:   closed.Add(-48 * time.Hour),
			ClosedAt:         &closed,
			TimeToCloseHours: &hours,
		},
	}

	data := dashboardIssues(rows, fieldTitle)
	if len(data) != 1 {
		t.Fatalf("expected 1 item, got %d", len(data))
	}
	if data[0].Text != "crash report" {
		t.Errorf("text = %q, want title only", data[0].Text)
	}
	if data[0].Issue.Author != "alice" || data[0].Issue.Comments != 4 {
		t.Errorf("issue fields not mapped: %+v", data[0].Issue)
	}
	if data[0].Issue.TimeToCloseHours == nil || *data[0].Issue.TimeToCloseHours != 48 {
		t.Errorf("time to close not mapped: %v", data[0].Issue.TimeToCloseHours)
	}

	data = dashboardIssues(rows, fieldLabels)
	if data[0].Text != "bug" {
		t.Errorf("labels text = %q, want %q", data[0].Text, "bug")
	}
}
