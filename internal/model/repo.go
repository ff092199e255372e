package model

import (
	"context"
	"errors"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/db"
	"github.com/retroam/agileai/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("model: record not found")

// Repo is the cached metadata of one analyzed repository.
type Repo struct {
	Model
	FullName    string    `json:"full_name" gorm:"column:full_name;type:varchar(255);not null;uniqueIndex"`
	Owner       string    `json:"owner" gorm:"column:owner;type:varchar(255);not null"`
	Name        string    `json:"name" gorm:"column:name;type:varchar(255);not null"`
	Description string    `json:"description" gorm:"column:description;type:text"`
	Language    string    `json:"language" gorm:"column:language;type:varchar(100)"`
	Stars       int       `json:"stars" gorm:"column:stars;default:0"`
	Forks       int       `json:"forks" gorm:"column:forks;default:0"`
	OpenIssues  int       `json:"open_issues" gorm:"column:open_issues;default:0"`
	Subscribers int       `json:"subscribers" gorm:"column:subscribers;default:0"`
	HtmlUrl     string    `json:"html_url" gorm:"column:html_url;type:varchar(512)"`
	PushedAt    time.Time `json:"pushed_at" gorm:"column:pushed_at"`
	FetchedAt   time.Time `json:"fetched_at" gorm:"column:fetched_at"`
}

func NewRepo(config *cfg.Config, logger log.Logger, db *db.Mysql) (*Repo, error) {
	repo := &Repo{
		Model: Model{
			Config: config,
			Logger: logger,
			Mysql:  db,
		},
	}
	return repo, nil
}

func (r *Repo) TableName() string {
	return "repositories"
}

// Upsert writes the row keyed by full name, refreshing the metadata columns
// and the fetch timestamp on conflict.
func (r *Repo) Upsert(ctx context.Context, row *Repo) error {
	row.FullName = TruncateString(row.FullName, 250)
	row.FetchedAt = time.Now()

	db, err := r.Mysql.Db()
	if err != nil {
		r.Logger.Error(ctx, "Failed to get database connection: %v", err)
		return err
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "full_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "language", "stars", "forks", "open_issues",
			"subscribers", "html_url", "pushed_at", "fetched_at", "updated_at",
		}),
	}).Create(row).Error; err != nil {
		r.Logger.Error(ctx, "Failed to upsert repository %s: %v", row.FullName, err)
		return err
	}

	r.Logger.Info(ctx, "Stored repository metadata for %s", row.FullName)
	return nil
}

// Get returns the cached row for a repository full name.
func (r *Repo) Get(ctx context.Context, fullName string) (*Repo, error) {
	db, err := r.Mysql.Db()
	if err != nil {
		return nil, err
	}

	var row Repo
	result := db.Where("full_name = ?", fullName).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &row, nil
}

// Fresh reports whether the cached row is younger than maxAge.
func (r *Repo) Fresh(row *Repo, maxAge time.Duration) bool {
	if row == nil {
		return false
	}
	return time.Since(row.FetchedAt) < maxAge
}
