package githubapi

import "time"

// RepoResponse maps the repository endpoint of the GitHub REST API.
type RepoResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
	Description      string    `json:"description"`
	Language         string    `json:"language"`
	StargazersCount  int       `json:"stargazers_count"`
	ForksCount       int       `json:"forks_count"`
	OpenIssuesCount  int       `json:"open_issues_count"`
	SubscribersCount int       `json:"subscribers_count"`
	WatchersCount    int       `json:"watchers_count"`
	HtmlUrl          string    `json:"html_url"`
	PushedAt         time.Time `json:"pushed_at"`
}

// IssueResponse maps one element of the issues listing. PullRequest is set
// when the element is actually a pull request; the listing mixes both.
type IssueResponse struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Comments int `json:"comments"`
	Labels   []struct {
		Name string `json:"name"`
	} `json:"labels"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	HtmlUrl     string     `json:"html_url"`
	PullRequest *struct {
		Url string `json:"url"`
	} `json:"pull_request,omitempty"`
}

// LabelNames flattens the label objects to their names.
func (ir *IssueResponse) LabelNames() []string {
	names := make([]string, 0, len(ir.Labels))
	for _, l := range ir.Labels {
		names = append(names, l.Name)
	}
	return names
}

// TimeToCloseHours returns the open duration in hours for closed issues,
// nil otherwise.
func (ir *IssueResponse) TimeToCloseHours() *float64 {
	if ir.ClosedAt == nil {
		return nil
	}
	hours := ir.ClosedAt.Sub(ir.CreatedAt).Hours()
	return &hours
}
