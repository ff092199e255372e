package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/internal/github_api"
	"github.com/retroam/agileai/internal/ingest"
	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/internal/ui"
	"github.com/retroam/agileai/pkg/db"
	applog "github.com/retroam/agileai/pkg/log"
)

func main() {
	port := flag.Int("port", 0, "Port for the dashboard server (0 = config value)")
	flag.Parse()

	ctx := context.Background()
	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, _ := applog.NewCslLogger()
	mysql, _ := db.NewMysql(config)

	repoMd, _ := model.NewRepo(config, logger, mysql)
	issueMd, _ := model.NewIssue(config, logger, mysql)
	vizMd, _ := model.NewVizCache(config, logger, mysql)
	if err := mysql.Migrate(repoMd, issueMd, vizMd); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Scheduled refresh shares the server process so one deployment keeps
	// tracked repositories fresh.
	caller := githubapi.NewCaller(logger, config)
	ingester, err := ingest.NewIngester(config, logger, caller, repoMd, issueMd, vizMd, nil)
	if err != nil {
		log.Fatalf("Failed to create ingester: %v", err)
	}
	scheduler, _ := ingest.NewScheduler(config, logger, ingester)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start refresh scheduler: %v", err)
	}

	server, err := ui.NewServer(logger, config, mysql, *port)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error(ctx, "Server failed to start: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	scheduler.Stop()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during server shutdown: %v", err)
	}
	logger.Info(ctx, "Server shut down gracefully")
}
