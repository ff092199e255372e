// Package dashboard holds the page state of one analyzed repository. Every
// external event has exactly one entry point on the Controller and events
// are total: any event in any state leaves defined, consistent state.
// Handlers render from Snapshot and never reach into the parts.
package dashboard

import (
	"sync"

	"github.com/retroam/agileai/internal/insights"
	"github.com/retroam/agileai/internal/topicmap"
	"github.com/retroam/agileai/internal/topicmodel"
	"github.com/retroam/agileai/internal/wordcloud"
)

// DefaultField is the issue text field the topic views analyze until the
// user picks another one.
const DefaultField = "all"

// RepoInfo is the repository header shown above the charts.
type RepoInfo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	OpenIssues  int    `json:"open_issues"`
	Language    string `json:"language"`
	IssueCount  int    `json:"issue_count"`
}

// IssueData is one issue as the dashboard consumes it: the aggregate
// fields plus the text feeding the word views.
type IssueData struct {
	insights.Issue
	Text string
}

// Snapshot is the immutable render model handed to handlers.
type Snapshot struct {
	Repo       *RepoInfo               `json:"repo,omitempty"`
	Insights   *insights.Summary       `json:"insights,omitempty"`
	Words      []wordcloud.Word        `json:"wordcloud,omitempty"`
	Treemap    []wordcloud.TreemapNode `json:"treemap,omitempty"`
	Field      string                  `json:"field"`
	TopicScene *topicmap.Scene         `json:"topic_scene,omitempty"`
	TopicPanel *topicmap.Panel         `json:"topic_panel,omitempty"`
}

type Controller struct {
	mu sync.Mutex

	maxWords   int
	maxTreemap int

	repo      RepoInfo
	hasRepo   bool
	insights  *insights.Summary
	words     []wordcloud.Word
	treemap   []wordcloud.TreemapNode
	field     string
	view      *topicmap.View
	hasTopics bool
}

func NewController(maxWords, maxTreemap int) *Controller {
	return &Controller{
		maxWords:   maxWords,
		maxTreemap: maxTreemap,
		field:      DefaultField,
		view:       topicmap.NewView(),
	}
}

// RepositoryLoaded installs the repository header.
func (c *Controller) RepositoryLoaded(info RepoInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo = info
	c.hasRepo = true
}

// IssuesLoaded derives the insight aggregates and both word views in one
// step, so a snapshot never mixes data from two issue sets.
func (c *Controller) IssuesLoaded(issues []IssueData) {
	stats := make([]insights.Issue, 0, len(issues))
	texts := make([]string, 0, len(issues))
	for _, issue := range issues {
		stats = append(stats, issue.Issue)
		texts = append(texts, issue.Text)
	}
	summary := insights.Build(stats)
	counts := wordcloud.Count(texts)
	words := wordcloud.Top(counts, c.maxWords)
	treemap := wordcloud.Treemap(counts, c.maxTreemap)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.insights = summary
	c.words = words
	c.treemap = treemap
	if c.hasRepo {
		c.repo.IssueCount = len(issues)
	}
}

// TopicDataLoaded installs a freshly computed topic model for the current
// field. Selection survival is the view's business.
func (c *Controller) TopicDataLoaded(output *topicmodel.Output) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.SetModel(output)
	c.hasTopics = output != nil && len(output.Topics) > 0
}

// FieldChanged switches the analyzed text field. Topic data belongs to the
// old field and is dropped; repository data and insights stay.
func (c *Controller) FieldChanged(field string) {
	if field == "" {
		field = DefaultField
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if field == c.field {
		return
	}
	c.field = field
	c.view.SetModel(nil)
	c.hasTopics = false
}

// TopicSelected forwards a click on a topic. Unknown ids are ignored and
// reported false.
func (c *Controller) TopicSelected(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Select(id)
}

// LambdaChanged moves the relevance slider. Selection never changes here.
func (c *Controller) LambdaChanged(lambda float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.SetLambda(lambda)
}

// Field returns the currently analyzed text field.
func (c *Controller) Field() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.field
}

// HasTopics reports whether topic data is loaded for the current field.
func (c *Controller) HasTopics() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasTopics
}

// Reset drops everything, as if the page was never loaded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo = RepoInfo{}
	c.hasRepo = false
	c.insights = nil
	c.words = nil
	c.treemap = nil
	c.field = DefaultField
	c.view = topicmap.NewView()
	c.hasTopics = false
}

// Snapshot renders the complete page state. The returned value shares no
// mutable state with the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Field: c.field}
	if c.hasRepo {
		repo := c.repo
		snap.Repo = &repo
	}
	snap.Insights = c.insights
	if c.words != nil {
		snap.Words = append([]wordcloud.Word(nil), c.words...)
	}
	if c.treemap != nil {
		snap.Treemap = append([]wordcloud.TreemapNode(nil), c.treemap...)
	}
	if c.hasTopics {
		scene := c.view.Scene()
		snap.TopicScene = &scene
		if panel, ok := c.view.Panel(); ok {
			snap.TopicPanel = &panel
		}
	}
	return snap
}
