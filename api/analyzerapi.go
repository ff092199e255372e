// Package api exposes the analyzer to embedding hosts, currently the wails
// desktop shell. It owns process wiring (config, logger, database, ingester)
// and tracks the one analysis run that may be in flight.
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/internal/github_api"
	"github.com/retroam/agileai/internal/ingest"
	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/pkg/db"
	"github.com/retroam/agileai/pkg/log"
)

// AnalyzeStats reports the state of the current or most recent analysis.
type AnalyzeStats struct {
	Repository string    `json:"repository"`
	IsRunning  bool      `json:"isRunning"`
	StartTime  time.Time `json:"startTime"`
	Duration   string    `json:"duration"`
	IssueCount int       `json:"issueCount"`
	LastError  string    `json:"lastError"`
}

// AnalyzerAPI is the high-level facade over the analyzer internals.
type AnalyzerAPI struct {
	ctx      context.Context
	config   *cfg.Config
	logger   log.Logger
	mysql    *db.Mysql
	repoMd   *model.Repo
	issueMd  *model.Issue
	vizMd    *model.VizCache
	ingester *ingest.Ingester

	statsMu   sync.RWMutex
	analyzing bool
	stats     *AnalyzeStats
	cancelRun context.CancelFunc
}

func NewAnalyzerAPI() *AnalyzerAPI {
	return &AnalyzerAPI{
		stats: &AnalyzeStats{},
	}
}

// Initialize wires configuration, logging, storage and the ingester. Must
// be called once before any other method.
func (a *AnalyzerAPI) Initialize(ctx context.Context) error {
	a.ctx = ctx

	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		a.logger, _ = log.NewCslLogger()
		a.logger.Error(ctx, "Failed to load configuration: %v", err)
		return err
	}
	a.config = config

	a.logger, err = log.NewCslLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.mysql, err = db.NewMysql(config)
	if err != nil {
		a.logger.Error(ctx, "Failed to connect to database: %v", err)
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	a.repoMd, _ = model.NewRepo(config, a.logger, a.mysql)
	a.issueMd, _ = model.NewIssue(config, a.logger, a.mysql)
	a.vizMd, _ = model.NewVizCache(config, a.logger, a.mysql)

	caller := githubapi.NewCaller(a.logger, config)
	a.ingester, err = ingest.NewIngester(config, a.logger, caller, a.repoMd, a.issueMd, a.vizMd, nil)
	if err != nil {
		return fmt.Errorf("failed to create ingester: %w", err)
	}

	return a.migrateDatabase()
}

func (a *AnalyzerAPI) migrateDatabase() error {
	if a.mysql == nil {
		return errors.New("database connection not initialized")
	}
	return a.mysql.Migrate(a.repoMd, a.issueMd, a.vizMd)
}

// StartAnalysis kicks off a repository sync in the background. Only one
// analysis runs at a time; progress is observable through GetAnalyzeStats.
func (a *AnalyzerAPI) StartAnalysis(repository string) (string, error) {
	if a.ingester == nil {
		return "", errors.New("analyzer is not initialized")
	}

	a.statsMu.Lock()
	if a.analyzing {
		a.statsMu.Unlock()
		return "An analysis is already in progress", nil
	}
	runCtx, cancel := context.WithCancel(a.ctx)
	a.analyzing = true
	a.cancelRun = cancel
	a.stats = &AnalyzeStats{
		Repository: repository,
		IsRunning:  true,
		StartTime:  time.Now(),
	}
	a.statsMu.Unlock()

	go func() {
		defer cancel()
		result, err := a.ingester.Sync(runCtx, repository)

		a.statsMu.Lock()
		defer a.statsMu.Unlock()
		a.analyzing = false
		a.cancelRun = nil
		a.stats.IsRunning = false
		a.stats.Duration = time.Since(a.stats.StartTime).String()
		if err != nil {
			a.stats.LastError = err.Error()
			return
		}
		a.stats.IssueCount = result.IssueCount
	}()

	return "Started analysis of " + repository, nil
}

// StopAnalysis cancels a running analysis. Work already persisted stays.
func (a *AnalyzerAPI) StopAnalysis() (string, error) {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()

	if !a.analyzing || a.cancelRun == nil {
		return "No analysis is in progress", nil
	}
	a.cancelRun()
	return "Stopping analysis (may take a moment to wind down)", nil
}

// GetAnalyzeStats returns a copy of the current analysis state.
func (a *AnalyzerAPI) GetAnalyzeStats() (*AnalyzeStats, error) {
	a.statsMu.RLock()
	defer a.statsMu.RUnlock()

	if a.stats == nil {
		return &AnalyzeStats{}, nil
	}
	stats := *a.stats
	if stats.IsRunning {
		stats.Duration = time.Since(stats.StartTime).String()
	}
	return &stats, nil
}

// GetCacheStatus reports when each derived payload of a repository was
// last stored.
func (a *AnalyzerAPI) GetCacheStatus(repository string) (map[string]time.Time, error) {
	if a.vizMd == nil {
		return nil, errors.New("analyzer is not initialized")
	}
	return a.vizMd.Status(a.ctx, repository)
}

// ClearCache drops the derived payloads of a repository and returns how
// many were removed.
func (a *AnalyzerAPI) ClearCache(repository string) (int64, error) {
	if a.vizMd == nil {
		return 0, errors.New("analyzer is not initialized")
	}
	return a.vizMd.Clear(a.ctx, repository, "")
}

// GetDatabaseStatus checks the storage connection.
func (a *AnalyzerAPI) GetDatabaseStatus() (string, error) {
	if a.mysql == nil {
		return "Database not initialized", nil
	}
	if err := a.mysql.Ping(a.ctx); err != nil {
		return "Database not connected: " + err.Error(), err
	}
	return "Database connected", nil
}
