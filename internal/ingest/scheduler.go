package ingest

import (
	"context"
	"fmt"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/log"
	"github.com/robfig/cron/v3"
)

// Scheduler re-syncs the tracked repositories on a cron spec from config,
// keeping their derived views fresh without manual refreshes.
type Scheduler struct {
	Logger   log.Logger
	Config   *cfg.Config
	Ingester *Ingester
	cron     *cron.Cron
}

func NewScheduler(config *cfg.Config, logger log.Logger, ingester *Ingester) (*Scheduler, error) {
	return &Scheduler{
		Logger:   logger,
		Config:   config,
		Ingester: ingester,
	}, nil
}

// Start registers the refresh job. With no cron spec or no tracked repos
// the scheduler stays off, which is the default deployment.
func (s *Scheduler) Start() error {
	ctx := context.Background()
	spec := s.Config.Refresh.Cron
	if spec == "" || len(s.Config.Refresh.Repos) == 0 {
		s.Logger.Info(ctx, "Scheduled refresh disabled")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(spec, s.refreshAll); err != nil {
		return fmt.Errorf("invalid refresh cron spec %q: %w", spec, err)
	}
	s.cron.Start()
	s.Logger.Info(ctx, "Scheduled refresh of %d repositories, spec %q", len(s.Config.Refresh.Repos), spec)
	return nil
}

func (s *Scheduler) refreshAll() {
	ctx := context.Background()
	for _, repo := range s.Config.Refresh.Repos {
		if _, err := s.Ingester.Sync(ctx, repo); err != nil {
			s.Logger.Error(ctx, "Scheduled refresh of %s failed: %v", repo, err)
		}
	}
}

// Stop waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
