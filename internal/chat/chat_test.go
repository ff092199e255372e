package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/pkg/log"
)

func testService(t *testing.T) *Service {
	t.Helper()
	loader, err := cfg.NewMockLoader()
	if err != nil {
		t.Fatalf("mock loader: %v", err)
	}
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return &Service{
		Logger: log.NewNopLogger(),
		Config: config,
	}
}

func chatIssues() []model.Issue {
	return []model.Issue{
		{ID: 1, Number: 10, Title: "Crash parsing JSON payload", Body: "The parser crashes on nested arrays", State: "open"},
		{ID: 2, Number: 11, Title: "Websocket memory leak", Body: "Memory grows under sustained websocket load", State: "closed"},
		{ID: 3, Number: 12, Title: "JSON parser panics", Body: "Panic on empty object input", State: "open"},
	}
}

func TestDecideApproachSQL(t *testing.T) {
	s := testService(t)
	s.callModel = func(ctx context.Context, system, user string) (string, error) {
		return `{"approach": "sql", "query": "SELECT COUNT(*) FROM issues"}`, nil
	}
	dec := s.decideApproach(context.Background(), "how many issues are there")
	if dec.Approach != "sql" || dec.Query != "SELECT COUNT(*) FROM issues" {
		t.Fatalf("decision = %+v", dec)
	}
}

func TestDecideApproachFencedJSON(t *testing.T) {
	s := testService(t)
	s.callModel = func(ctx context.Context, system, user string) (string, error) {
		return "```json\n{\"approach\": \"sql\", \"query\": \"SELECT 1 FROM issues\"}\n```", nil
	}
	dec := s.decideApproach(context.Background(), "q")
	if dec.Approach != "sql" {
		t.Fatalf("decision = %+v, want sql", dec)
	}
}

func TestDecideApproachDefaultsToSearch(t *testing.T) {
	cases := []struct {
		name     string
		response string
		err      error
	}{
		{"garbage", "not json at all", nil},
		{"call error", "", errors.New("api down")},
		{"sql without query", `{"approach": "sql", "query": ""}`, nil},
		{"unknown approach", `{"approach": "vector", "query": "x"}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testService(t)
			s.callModel = func(ctx context.Context, system, user string) (string, error) {
				return tc.response, tc.err
			}
			dec := s.decideApproach(context.Background(), "q")
			if dec.Approach != "search" || dec.Query != "" {
				t.Fatalf("decision = %+v, want search fallback", dec)
			}
		})
	}
}

func TestAskSearchFlow(t *testing.T) {
	s := testService(t)
	s.listIssues = func(ctx context.Context, repoName string) ([]model.Issue, error) {
		if repoName != "octo/widgets" {
			t.Fatalf("repo = %q", repoName)
		}
		return chatIssues(), nil
	}

	calls := 0
	s.callModel = func(ctx context.Context, system, user string) (string, error) {
		calls++
		if calls == 1 {
			return `{"approach": "search", "query": ""}`, nil
		}
		if !strings.Contains(system, "#10") || !strings.Contains(system, "#12") {
			t.Errorf("answer context missing matched issues:\n%s", system)
		}
		if strings.Contains(system, "#11") {
			t.Errorf("unrelated issue leaked into context:\n%s", system)
		}
		return "  Issues #10 and #12 cover JSON crashes.  ", nil
	}

	answer, err := s.Ask(context.Background(), "octo/widgets", "which issues mention json crashes")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if calls != 2 {
		t.Fatalf("model calls = %d, want 2", calls)
	}
	if answer.Text != "Issues #10 and #12 cover JSON crashes." {
		t.Fatalf("text = %q", answer.Text)
	}
	if answer.Approach != "search" {
		t.Fatalf("approach = %q", answer.Approach)
	}
	if len(answer.Sources) != 2 || answer.Sources[0].Number != 10 || answer.Sources[1].Number != 12 {
		t.Fatalf("sources = %+v", answer.Sources)
	}
}

func TestAskInvalidSQLFallsBackToSearch(t *testing.T) {
	s := testService(t)
	s.listIssues = func(ctx context.Context, repoName string) ([]model.Issue, error) {
		return chatIssues(), nil
	}
	calls := 0
	s.callModel = func(ctx context.Context, system, user string) (string, error) {
		calls++
		if calls == 1 {
			return `{"approach": "sql", "query": "DROP TABLE issues"}`, nil
		}
		return "answer", nil
	}

	answer, err := s.Ask(context.Background(), "octo/widgets", "json crash")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Approach != "search" {
		t.Fatalf("approach = %q, want search after sql rejection", answer.Approach)
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	s := testService(t)
	if _, err := s.Ask(context.Background(), "octo/widgets", "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("err = %v, want ErrEmptyQuestion", err)
	}
}

func TestAskWithoutStoredIssues(t *testing.T) {
	s := testService(t)
	s.listIssues = func(ctx context.Context, repoName string) ([]model.Issue, error) {
		return nil, nil
	}
	_, err := s.Ask(context.Background(), "octo/widgets", "anything")
	if !errors.Is(err, ErrNoIssues) {
		t.Fatalf("err = %v, want ErrNoIssues", err)
	}
}

func TestSearchContextFallsBackToRecentIssues(t *testing.T) {
	s := testService(t)
	block, sources := s.searchContext("octo/widgets", chatIssues(), "completely unrelated kubernetes question")
	if len(sources) != 3 {
		t.Fatalf("sources = %+v, want all three recent issues", sources)
	}
	if sources[0].Number != 12 {
		t.Fatalf("sources[0] = %+v, want most recent first", sources[0])
	}
	if !strings.Contains(block, "#10") || !strings.Contains(block, "#11") || !strings.Contains(block, "#12") {
		t.Fatalf("context block incomplete:\n%s", block)
	}
}

func TestTrimFences(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                     "{\"a\":1}",
		"```json\n{\"a\":1}\n```":       "{\"a\":1}",
		"```\n{\"a\":1}\n```":           "{\"a\":1}",
		"  \n```json\n{\"a\":1}\n```  ": "{\"a\":1}",
	}
	for in, want := range cases {
		if got := trimFences(in); got != want {
			t.Fatalf("trimFences(%q) = %q, want %q", in, got, want)
		}
	}
}
