package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/internal/atlas"
	"github.com/retroam/agileai/internal/chat"
	"github.com/retroam/agileai/internal/dashboard"
	"github.com/retroam/agileai/internal/github_api"
	"github.com/retroam/agileai/internal/ingest"
	"github.com/retroam/agileai/internal/insights"
	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/internal/topicmodel"
	"github.com/retroam/agileai/pkg/db"
	"github.com/retroam/agileai/pkg/log"
)

// Handler serves the dashboard API. Page state lives in one controller per
// repository; handlers translate requests into controller events and render
// from snapshots.
type Handler struct {
	Logger   log.Logger
	Config   *cfg.Config
	MySQL    *db.Mysql
	RepoMd   *model.Repo
	IssueMd  *model.Issue
	VizMd    *model.VizCache
	Ingester *ingest.Ingester

	// Chat and Atlas stay nil when their API keys are not configured; the
	// endpoints then answer 503 instead of failing at startup.
	Chat  *chat.Service
	Atlas *atlas.Client

	baseDir string

	mu          sync.Mutex
	controllers map[string]*dashboard.Controller
	atlasJobs   map[string]*atlasJob
}

func NewHandler(logger log.Logger, config *cfg.Config, mysql *db.Mysql) (*Handler, error) {
	repoMd, _ := model.NewRepo(config, logger, mysql)
	issueMd, _ := model.NewIssue(config, logger, mysql)
	vizMd, _ := model.NewVizCache(config, logger, mysql)

	caller := githubapi.NewCaller(logger, config)
	ingester, err := ingest.NewIngester(config, logger, caller, repoMd, issueMd, vizMd, nil)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		Logger:      logger,
		Config:      config,
		MySQL:       mysql,
		RepoMd:      repoMd,
		IssueMd:     issueMd,
		VizMd:       vizMd,
		Ingester:    ingester,
		baseDir:     config.Server.StaticDir,
		controllers: map[string]*dashboard.Controller{},
		atlasJobs:   map[string]*atlasJob{},
	}
	if h.baseDir == "" {
		h.baseDir = "internal/ui/static"
	}

	if config.Anthropic.ApiKey != "" {
		chatSvc, err := chat.NewService(config, logger, mysql, issueMd)
		if err != nil {
			return nil, err
		}
		h.Chat = chatSvc
	}
	if config.Atlas.ApiKey != "" {
		atlasCli, err := atlas.NewClient(config, logger)
		if err != nil {
			return nil, err
		}
		h.Atlas = atlasCli
	}

	return h, nil
}

// RegisterRoutes sets up the HTTP routes of the dashboard.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	fileServer := http.FileServer(http.Dir(h.baseDir))
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))

	mux.HandleFunc("/api/repository", h.getRepository)
	mux.HandleFunc("/api/repository/refresh", h.refreshRepository)
	mux.HandleFunc("/api/issues", h.getIssues)
	mux.HandleFunc("/api/insights", h.getInsights)
	mux.HandleFunc("/api/wordcloud", h.getWordcloud)
	mux.HandleFunc("/api/topics/import", h.importTopics)
	mux.HandleFunc("/api/topics", h.getTopics)
	mux.HandleFunc("/api/topicmap/scene", h.getTopicScene)
	mux.HandleFunc("/api/topicmap/panel", h.getTopicPanel)
	mux.HandleFunc("/api/atlas/topics", h.getAtlasTopics)
	mux.HandleFunc("/api/chat", h.postChat)
	mux.HandleFunc("/api/cache/status", h.getCacheStatus)
	mux.HandleFunc("/api/cache/clear", h.clearCache)

	mux.HandleFunc("/", h.showHomePage)
}

func (h *Handler) showHomePage(w http.ResponseWriter, r *http.Request) {
	templatePath := filepath.Join(h.baseDir, "index.html")
	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		h.Logger.Error(r.Context(), "Failed to parse template: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := tmpl.Execute(w, nil); err != nil {
		h.Logger.Error(r.Context(), "Failed to execute template: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Response sources: where the data of a 200 came from.
const (
	sourceCache     = "cache"
	sourceApi       = "api"
	sourceGenerated = "generated"
)

type envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Source string      `json:"source,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, code int, data interface{}, source string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(envelope{Status: "ok", Data: data, Source: source}); err != nil {
		h.Logger.Error(r.Context(), "Failed to encode JSON response: %v", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code int, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if code >= http.StatusInternalServerError {
		h.Logger.Error(r.Context(), "%s", message)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(envelope{Status: "error", Error: message}); err != nil {
		h.Logger.Error(r.Context(), "Failed to encode JSON error: %v", err)
	}
}

// repoParam reads and validates the repo query parameter.
func (h *Handler) repoParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	repo := strings.TrimSpace(r.URL.Query().Get("repo"))
	if repo == "" || !strings.Contains(repo, "/") {
		h.fail(w, r, http.StatusBadRequest, "repo must be owner/name")
		return "", false
	}
	return repo, true
}

// Analyzed text fields of an issue.
const (
	fieldAll    = "all"
	fieldTitle  = "title"
	fieldBody   = "body"
	fieldLabels = "labels"
)

func fieldParam(r *http.Request) string {
	switch f := strings.TrimSpace(r.URL.Query().Get("field")); f {
	case fieldTitle, fieldBody, fieldLabels:
		return f
	default:
		return fieldAll
	}
}

// issueText extracts the text of one issue for a given field.
func issueText(issue *model.Issue, field string) string {
	switch field {
	case fieldTitle:
		return issue.Title
	case fieldBody:
		return issue.Body
	case fieldLabels:
		return strings.Join(model.SplitLabels(issue.Labels), " ")
	default:
		return issue.Title + " " + issue.Body
	}
}

// controllerFor returns the page controller of a repository, creating it
// on first use.
func (h *Handler) controllerFor(repo string) *dashboard.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	ctrl, ok := h.controllers[repo]
	if !ok {
		ctrl = dashboard.NewController(
			h.Config.Analyzer.WordcloudMaxWords,
			h.Config.Analyzer.TreemapMaxWords,
		)
		h.controllers[repo] = ctrl
	}
	return ctrl
}

func (h *Handler) cacheMaxAge() time.Duration {
	return time.Duration(h.Config.Analyzer.CacheMaxAgeHours) * time.Hour
}

func (h *Handler) atlasCacheMaxAge() time.Duration {
	return time.Duration(h.Config.Analyzer.AtlasCacheMaxAgeHours) * time.Hour
}

// errNotAnalyzed means the repository has no stored issues yet.
var errNotAnalyzed = errors.New("no issues stored, analyze the repository first")

// loadIssues returns the stored issues of a repository, failing when the
// repository was never analyzed.
func (h *Handler) loadIssues(ctx context.Context, repo string) ([]model.Issue, error) {
	issues, err := h.IssueMd.AllByRepo(ctx, repo)
	if err != nil {
		return nil, err
	}
	if len(issues) == 0 {
		return nil, fmt.Errorf("%w: %s", errNotAnalyzed, repo)
	}
	return issues, nil
}

// dashboardIssues maps stored rows into the controller's issue shape for a
// given text field.
func dashboardIssues(issues []model.Issue, field string) []dashboard.IssueData {
	data := make([]dashboard.IssueData, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		data = append(data, dashboard.IssueData{
			Issue: insights.Issue{
				State:            issue.State,
				Author:           issue.Author,
				Comments:         issue.Comments,
				CreatedAt:        issue.IssueCreatedAt,
				ClosedAt:         issue.ClosedAt,
				TimeToCloseHours: issue.TimeToCloseHours,
			},
			Text: issueText(issue, field),
		})
	}
	return data
}

// topicsCacheType keys the imported artifact per analyzed field.
func topicsCacheType(field string) string {
	return model.VizTopics + "_" + field
}

// errNoTopicModel means no artifact was imported for the repo and field.
var errNoTopicModel = errors.New("no topic model imported, POST one to /api/topics/import first")

// ensureTopicData makes sure the controller holds topic data for field,
// loading the imported artifact from the cache when needed. Imported
// artifacts never expire on their own, so a stale row still loads.
func (h *Handler) ensureTopicData(ctx context.Context, ctrl *dashboard.Controller, repo, field string) error {
	ctrl.FieldChanged(field)
	if ctrl.HasTopics() {
		return nil
	}

	payload, err := h.VizMd.Get(ctx, repo, topicsCacheType(field), h.atlasCacheMaxAge())
	if err != nil && !errors.Is(err, model.ErrCacheStale) {
		if errors.Is(err, model.ErrCacheMiss) {
			return fmt.Errorf("%w: %s field %s", errNoTopicModel, repo, field)
		}
		return err
	}

	output, err := topicmodel.Decode([]byte(payload))
	if err != nil {
		return err
	}
	ctrl.TopicDataLoaded(output)
	return nil
}
