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

// Cache lookup outcomes. Stale rows keep their payload so callers may serve
// them while a refresh runs.
var (
	ErrCacheMiss  = errors.New("model: cache miss")
	ErrCacheStale = errors.New("model: cache stale")
)

// Known visualization types. Word cloud and topic types carry a field
// suffix, e.g. "wordcloud_title".
const (
	VizInsights    = "insights"
	VizWordcloud   = "wordcloud"
	VizTopics      = "topics"
	VizAtlasTopics = "atlas_topics"
)

// VizCache stores one derived JSON document per (repository, type).
type VizCache struct {
	Model
	RepoName string `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_repo_viz,priority:1"`
	VizType  string `json:"viz_type" gorm:"column:viz_type;type:varchar(100);not null;uniqueIndex:idx_repo_viz,priority:2"`
	Payload  string `json:"payload" gorm:"column:payload;type:longtext"`
}

func NewVizCache(config *cfg.Config, logger log.Logger, db *db.Mysql) (*VizCache, error) {
	vc := &VizCache{
		Model: Model{
			Config: config,
			Logger: logger,
			Mysql:  db,
		},
	}
	return vc, nil
}

func (v *VizCache) TableName() string {
	return "visualization_cache"
}

// Get returns the cached payload when younger than maxAge. A stale row is
// returned alongside ErrCacheStale; a missing row returns ErrCacheMiss.
func (v *VizCache) Get(ctx context.Context, repoName, vizType string, maxAge time.Duration) (string, error) {
	db, err := v.Mysql.Db()
	if err != nil {
		return "", err
	}

	var row VizCache
	result := db.Where("repo_name = ? AND viz_type = ?", repoName, vizType).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", ErrCacheMiss
		}
		return "", result.Error
	}

	if time.Since(row.UpdatedAt) > maxAge {
		return row.Payload, ErrCacheStale
	}
	return row.Payload, nil
}

// Put stores or refreshes the payload for (repoName, vizType).
func (v *VizCache) Put(ctx context.Context, repoName, vizType, payload string) error {
	db, err := v.Mysql.Db()
	if err != nil {
		return err
	}

	row := &VizCache{
		RepoName: repoName,
		VizType:  vizType,
		Payload:  payload,
		Model:    Model{CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repo_name"}, {Name: "viz_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(row).Error; err != nil {
		v.Logger.Error(ctx, "Failed to store %s cache for %s: %v", vizType, repoName, err)
		return err
	}
	return nil
}

// Clear drops cached documents. With an empty vizType every document of the
// repository goes away.
func (v *VizCache) Clear(ctx context.Context, repoName, vizType string) (int64, error) {
	db, err := v.Mysql.Db()
	if err != nil {
		return 0, err
	}

	query := db.Where("repo_name = ?", repoName)
	if vizType != "" {
		query = query.Where("viz_type = ?", vizType)
	}
	result := query.Delete(&VizCache{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Status lists the cached types of a repository with their refresh times.
func (v *VizCache) Status(ctx context.Context, repoName string) (map[string]time.Time, error) {
	db, err := v.Mysql.Db()
	if err != nil {
		return nil, err
	}

	var rows []VizCache
	if err := db.Select("viz_type", "updated_at").Where("repo_name = ?", repoName).Find(&rows).Error; err != nil {
		return nil, err
	}

	status := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		status[row.VizType] = row.UpdatedAt
	}
	return status, nil
}
