package model

import "time"

// IssueMessage is the issue payload published to kafka during a sync.
type IssueMessage struct {
	ID               int64      `json:"id"`
	RepoName         string     `json:"repo_name"`
	Number           int        `json:"number"`
	Title            string     `json:"title"`
	Body             string     `json:"body"`
	State            string     `json:"state"`
	Author           string     `json:"author"`
	Comments         int        `json:"comments"`
	Labels           string     `json:"labels"`
	HtmlUrl          string     `json:"html_url"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ClosedAt         *time.Time `json:"closed_at"`
	TimeToCloseHours *float64   `json:"time_to_close_hours"`
}
