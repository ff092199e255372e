package model

import (
	"context"
	"fmt"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/db"
	"github.com/retroam/agileai/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Issue is one GitHub issue of an analyzed repository. The primary key is
// the GitHub issue id, so re-syncs update in place.
type Issue struct {
	Model
	ID               int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement:false"`
	RepoName         string     `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_repo_number,priority:1;index"`
	Number           int        `json:"number" gorm:"column:number;not null;uniqueIndex:idx_repo_number,priority:2"`
	Title            string     `json:"title" gorm:"column:title;type:text"`
	Body             string     `json:"body" gorm:"column:body;type:longtext"`
	State            string     `json:"state" gorm:"column:state;type:varchar(32);index"`
	Author           string     `json:"author" gorm:"column:author;type:varchar(255)"`
	Comments         int        `json:"comments" gorm:"column:comments;default:0"`
	Labels           string     `json:"labels" gorm:"column:labels;type:text"`
	HtmlUrl          string     `json:"html_url" gorm:"column:html_url;type:varchar(512)"`
	IssueCreatedAt   time.Time  `json:"issue_created_at" gorm:"column:issue_created_at"`
	IssueUpdatedAt   time.Time  `json:"issue_updated_at" gorm:"column:issue_updated_at"`
	ClosedAt         *time.Time `json:"closed_at" gorm:"column:closed_at"`
	TimeToCloseHours *float64   `json:"time_to_close_hours" gorm:"column:time_to_close_hours"`
}

func NewIssue(config *cfg.Config, logger log.Logger, db *db.Mysql) (*Issue, error) {
	issue := &Issue{
		Model: Model{
			Config: config,
			Logger: logger,
			Mysql:  db,
		},
	}
	return issue, nil
}

func (i *Issue) TableName() string {
	return "issues"
}

var issueUpdateColumns = []string{
	"title", "body", "state", "author", "comments", "labels",
	"issue_updated_at", "closed_at", "time_to_close_hours", "updated_at",
}

// Create upserts a single issue row.
func (i *Issue) Create(ctx context.Context, row *Issue) error {
	db, err := i.Mysql.Db()
	if err != nil {
		i.Logger.Error(ctx, "Failed to get database connection: %v", err)
		return err
	}

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(issueUpdateColumns),
	}).Create(row).Error; err != nil {
		i.Logger.Error(ctx, "Failed to upsert issue #%d of %s: %v", row.Number, row.RepoName, err)
		return err
	}
	return nil
}

// CreateBatch upserts issue messages in one transaction, 100 rows per insert.
func (i *Issue) CreateBatch(messages []IssueMessage) error {
	db, err := i.Mysql.Db()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	rows := make([]Issue, 0, len(messages))
	now := time.Now()
	for _, msg := range messages {
		rows = append(rows, Issue{
			ID:               msg.ID,
			RepoName:         msg.RepoName,
			Number:           msg.Number,
			Title:            msg.Title,
			Body:             msg.Body,
			State:            msg.State,
			Author:           msg.Author,
			Comments:         msg.Comments,
			Labels:           msg.Labels,
			HtmlUrl:          msg.HtmlUrl,
			IssueCreatedAt:   msg.CreatedAt,
			IssueUpdatedAt:   msg.UpdatedAt,
			ClosedAt:         msg.ClosedAt,
			TimeToCloseHours: msg.TimeToCloseHours,
			Model:            Model{CreatedAt: now, UpdatedAt: now},
		})
	}

	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(issueUpdateColumns),
		}).CreateInBatches(rows, 100)

		if result.Error != nil {
			return fmt.Errorf("failed to batch create issues: %w", result.Error)
		}
		return nil
	})
}

// ListByRepo returns one page of issues ordered by issue number descending.
func (i *Issue) ListByRepo(ctx context.Context, repoName string, page, pageSize int) ([]Issue, int64, error) {
	db, err := i.Mysql.Db()
	if err != nil {
		return nil, 0, err
	}

	var rows []Issue
	offset := (page - 1) * pageSize
	result := db.Where("repo_name = ?", repoName).
		Order("number DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&rows)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	var total int64
	if err := db.Model(&Issue{}).Where("repo_name = ?", repoName).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AllByRepo returns every issue of a repository, oldest first. Used by the
// derived-data builders which need the full set.
func (i *Issue) AllByRepo(ctx context.Context, repoName string) ([]Issue, error) {
	db, err := i.Mysql.Db()
	if err != nil {
		return nil, err
	}

	var rows []Issue
	result := db.Where("repo_name = ?", repoName).Order("issue_created_at ASC").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}

// CountByRepo returns the number of stored issues for a repository.
func (i *Issue) CountByRepo(ctx context.Context, repoName string) (int64, error) {
	db, err := i.Mysql.Db()
	if err != nil {
		return 0, err
	}
	var total int64
	if err := db.Model(&Issue{}).Where("repo_name = ?", repoName).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
