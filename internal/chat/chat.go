// Package chat answers free-form questions about a repository's issues.
// A first model call picks the retrieval approach, either a TF-IDF search
// over issue text or a guarded SQL query, and a second call composes the
// answer from whatever that retrieval produced.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/internal/search"
	"github.com/retroam/agileai/pkg/db"
	"github.com/retroam/agileai/pkg/log"
)

var (
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrNoIssues means the repository has no stored issues to answer from.
	ErrNoIssues = errors.New("no issues stored, analyze the repository first")
)

type Answer struct {
	Text     string   `json:"answer"`
	Approach string   `json:"approach"`
	Sources  []Source `json:"sources"`
}

// Source is one issue the answer drew on.
type Source struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
}

type decision struct {
	Approach string `json:"approach"`
	Query    string `json:"query"`
}

type modelFunc func(ctx context.Context, system, user string) (string, error)

type Service struct {
	Logger log.Logger
	Config *cfg.Config
	Mysql  *db.Mysql
	Issue  *model.Issue

	callModel  modelFunc
	listIssues func(ctx context.Context, repoName string) ([]model.Issue, error)
}

func NewService(config *cfg.Config, logger log.Logger, mysql *db.Mysql, issue *model.Issue) (*Service, error) {
	if config.Anthropic.ApiKey == "" {
		return nil, fmt.Errorf("anthropic api key is not configured")
	}
	s := &Service{
		Logger: logger,
		Config: config,
		Mysql:  mysql,
		Issue:  issue,
	}
	s.callModel = s.anthropicCall
	s.listIssues = issue.AllByRepo
	return s, nil
}

const decideSystemPrompt = `You route questions about GitHub issues to one of two retrieval tools.

The sql tool runs one SELECT statement against a MySQL table named issues
with columns: number (int), title (text), body (longtext),
state ('open' or 'closed'), author (varchar), comments (int),
labels (JSON array as text), issue_created_at (datetime),
issue_updated_at (datetime), closed_at (datetime, NULL while open),
time_to_close_hours (double, NULL while open).

Use sql for counting, ranking, filtering and date arithmetic. Use search
for questions about the content or meaning of issues.

Respond with JSON only, no markdown:
{"approach": "sql", "query": "SELECT ..."} or {"approach": "search", "query": ""}`

const answerSystemPromptFormat = `You answer questions about the GitHub repository %s using only the context
below. Reference issues by number like #123. If the context cannot answer
the question, say so instead of guessing.

Context:
%s`

// Ask answers a question about repoName's issues.
func (s *Service) Ask(ctx context.Context, repoName, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	issues, err := s.listIssues(ctx, repoName)
	if err != nil {
		return nil, err
	}
	if len(issues) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoIssues, repoName)
	}

	dec := s.decideApproach(ctx, question)

	approach := dec.Approach
	var contextBlock string
	var sources []Source

	if approach == "sql" {
		block, sqlErr := s.runSQL(ctx, repoName, dec.Query)
		if sqlErr != nil {
			s.Logger.Warn(ctx, "Sql approach failed, falling back to search: %v", sqlErr)
			approach = "search"
		} else {
			contextBlock = block
			sources = []Source{}
		}
	}
	if approach != "sql" {
		approach = "search"
		contextBlock, sources = s.searchContext(repoName, issues, question)
	}

	system := fmt.Sprintf(answerSystemPromptFormat, repoName, contextBlock)
	text, err := s.callModel(ctx, system, question)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &Answer{
		Text:     strings.TrimSpace(text),
		Approach: approach,
		Sources:  sources,
	}, nil
}

// decideApproach never fails: any error or unparseable response falls back
// to the search approach.
func (s *Service) decideApproach(ctx context.Context, question string) decision {
	raw, err := s.callModel(ctx, decideSystemPrompt, question)
	if err != nil {
		s.Logger.Warn(ctx, "Approach decision failed, defaulting to search: %v", err)
		return decision{Approach: "search"}
	}

	var dec decision
	if err := json.Unmarshal([]byte(trimFences(raw)), &dec); err != nil {
		s.Logger.Warn(ctx, "Cannot parse approach decision, defaulting to search: %v", err)
		return decision{Approach: "search"}
	}

	dec.Approach = strings.ToLower(strings.TrimSpace(dec.Approach))
	if dec.Approach != "sql" || strings.TrimSpace(dec.Query) == "" {
		return decision{Approach: "search"}
	}
	return dec
}

func (s *Service) runSQL(ctx context.Context, repoName, query string) (string, error) {
	scoped, binds, err := GuardQuery(query)
	if err != nil {
		return "", err
	}

	gormDB, err := s.Mysql.Db()
	if err != nil {
		return "", err
	}

	args := make([]interface{}, binds)
	for i := range args {
		args[i] = repoName
	}

	var rows []map[string]interface{}
	if err := gormDB.WithContext(ctx).Raw(scoped, args...).Scan(&rows).Error; err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}

	maxRows := s.Config.Analyzer.ChatMaxRows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SQL query:\n%s\n\nRows (%d):\n", scoped, len(rows))
	for _, row := range rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			continue
		}
		b.Write(encoded)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

const sourceBodyMaxLen = 400

func (s *Service) searchContext(repoName string, issues []model.Issue, question string) (string, []Source) {
	index := search.NewIndex()
	byID := make(map[int64]*model.Issue, len(issues))
	for i := range issues {
		issue := &issues[i]
		index.Add(issue.ID, issue.Title+" "+issue.Body)
		byID[issue.ID] = issue
	}

	limit := s.Config.Analyzer.ChatContextIssues
	matches := index.Search(question, limit)

	var b strings.Builder
	sources := make([]Source, 0, len(matches))
	appendIssue := func(issue *model.Issue) {
		fmt.Fprintf(&b, "#%d [%s] %s\n%s\n\n",
			issue.Number, issue.State, issue.Title,
			model.TruncateString(issue.Body, sourceBodyMaxLen))
		sources = append(sources, Source{
			Number: issue.Number,
			Title:  issue.Title,
			State:  issue.State,
		})
	}

	for _, match := range matches {
		if issue := byID[match.ID]; issue != nil {
			appendIssue(issue)
		}
	}
	if len(sources) > 0 {
		return b.String(), sources
	}

	// Nothing matched the question; show the most recent issues instead.
	// Issues arrive oldest first.
	start := len(issues) - limit
	if start < 0 {
		start = 0
	}
	for i := len(issues) - 1; i >= start; i-- {
		appendIssue(&issues[i])
	}
	return b.String(), sources
}

func (s *Service) anthropicCall(ctx context.Context, system, user string) (string, error) {
	conf := s.Config
	client := anthropic.NewClient(option.WithAPIKey(conf.Anthropic.ApiKey))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(conf.Anthropic.Model),
		MaxTokens: int64(conf.Anthropic.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in model response")
}

// trimFences strips the markdown code fences models like to wrap JSON in.
func trimFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
