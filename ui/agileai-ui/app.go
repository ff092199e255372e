package main

import (
	"context"
	"fmt"

	"github.com/retroam/agileai/api"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// App struct
type App struct {
	ctx           context.Context
	analyzer      *api.AnalyzerAPI
	initError     string
	isInitialized bool
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{
		analyzer:      api.NewAnalyzerAPI(),
		isInitialized: false,
	}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// Initialize the analyzer API
	err := a.analyzer.Initialize(ctx)
	if err != nil {
		a.initError = fmt.Sprintf("Failed to initialize analyzer: %v", err)
		fmt.Println(a.initError)
		runtime.LogErrorf(ctx, "Initialization error: %v", err)
		// Keep going so the UI can surface the error message
	} else {
		a.isInitialized = true
		runtime.LogInfo(ctx, "Analyzer initialized successfully")
	}
}

// StartAnalysis starts syncing and analyzing the given repository
func (a *App) StartAnalysis(repository string) string {
	if !a.isInitialized {
		return fmt.Sprintf("Error: Analyzer is not initialized. %s", a.initError)
	}

	result, err := a.analyzer.StartAnalysis(repository)
	if err != nil {
		errMsg := fmt.Sprintf("Error starting analysis: %v", err)
		runtime.LogErrorf(a.ctx, errMsg)
		return errMsg
	}

	runtime.LogInfof(a.ctx, "Started analysis of %s", repository)
	return result
}

// StopAnalysis attempts to stop the running analysis
func (a *App) StopAnalysis() string {
	if !a.isInitialized {
		return fmt.Sprintf("Error: Analyzer is not initialized. %s", a.initError)
	}

	result, err := a.analyzer.StopAnalysis()
	if err != nil {
		errMsg := fmt.Sprintf("Error stopping analysis: %v", err)
		runtime.LogErrorf(a.ctx, errMsg)
		return errMsg
	}

	runtime.LogInfo(a.ctx, "Stopped analysis")
	return result
}

// GetAnalyzeStats returns the current analysis statistics
func (a *App) GetAnalyzeStats() *api.AnalyzeStats {
	if !a.isInitialized {
		return &api.AnalyzeStats{
			IsRunning: false,
			LastError: fmt.Sprintf("Analyzer is not initialized. %s", a.initError),
		}
	}

	stats, err := a.analyzer.GetAnalyzeStats()
	if err != nil {
		errMsg := fmt.Sprintf("Error getting stats: %v", err)
		runtime.LogErrorf(a.ctx, errMsg)
		return &api.AnalyzeStats{
			LastError: errMsg,
		}
	}

	return stats
}

// GetCacheStatus returns cached visualization kinds and build times for a repository
func (a *App) GetCacheStatus(repository string) map[string]string {
	if !a.isInitialized {
		return map[string]string{"error": fmt.Sprintf("Analyzer is not initialized. %s", a.initError)}
	}

	status, err := a.analyzer.GetCacheStatus(repository)
	if err != nil {
		errMsg := fmt.Sprintf("Error getting cache status: %v", err)
		runtime.LogErrorf(a.ctx, errMsg)
		return map[string]string{"error": errMsg}
	}

	out := make(map[string]string, len(status))
	for kind, at := range status {
		out[kind] = at.Format("2006-01-02 15:04:05")
	}
	return out
}

// ClearCache drops cached visualizations for a repository
func (a *App) ClearCache(repository string) string {
	if !a.isInitialized {
		return fmt.Sprintf("Error: Analyzer is not initialized. %s", a.initError)
	}

	dropped, err := a.analyzer.ClearCache(repository)
	if err != nil {
		errMsg := fmt.Sprintf("Error clearing cache: %v", err)
		runtime.LogErrorf(a.ctx, errMsg)
		return errMsg
	}

	return fmt.Sprintf("Cleared %d cached visualizations", dropped)
}

// GetDbStatus checks the database connection status
func (a *App) GetDbStatus() string {
	if !a.isInitialized {
		return fmt.Sprintf("Error: Analyzer is not initialized. %s", a.initError)
	}

	status, err := a.analyzer.GetDatabaseStatus()
	if err != nil {
		errMsg := fmt.Sprintf("Database error: %v", err)
		runtime.LogErrorf(a.ctx, errMsg)
		return errMsg
	}

	return status
}

// GetInitStatus returns analyzer initialization status and any error message
func (a *App) GetInitStatus() map[string]interface{} {
	return map[string]interface{}{
		"initialized": a.isInitialized,
		"error":       a.initError,
	}
}
