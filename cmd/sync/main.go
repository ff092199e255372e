package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/internal/github_api"
	"github.com/retroam/agileai/internal/ingest"
	"github.com/retroam/agileai/internal/insights"
	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/pkg/db"
	"github.com/retroam/agileai/pkg/kafka"
	applog "github.com/retroam/agileai/pkg/log"
)

func main() {
	repo := flag.String("repo", "", "Repository to sync (owner/name)")
	useKafka := flag.Bool("kafka", false, "Publish issues through kafka instead of writing them directly")
	warm := flag.Bool("warm", false, "Precompute the insights cache after the sync")
	flag.Parse()

	if *repo == "" {
		fmt.Println("Please specify a repository: -repo=owner/name")
		os.Exit(1)
	}

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

	var producer *kafka.Producer
	if *useKafka {
		producer, err = kafka.NewProducer(config, logger, config.Kafka.Producer.TopicIssue)
		if err != nil {
			log.Fatalf("Failed to create kafka producer: %v", err)
		}
		defer producer.Close()
	}

	caller := githubapi.NewCaller(logger, config)
	ingester, err := ingest.NewIngester(config, logger, caller, repoMd, issueMd, vizMd, producer)
	if err != nil {
		log.Fatalf("Failed to create ingester: %v", err)
	}

	result, err := ingester.Sync(ctx, *repo)
	if err != nil {
		logger.Error(ctx, "Sync of %s failed: %v", *repo, err)
		os.Exit(1)
	}
	logger.Info(ctx, "Synced %s: %d issues", result.RepoName, result.IssueCount)

	if *warm {
		if result.Published {
			// The consumer persists asynchronously, so there is nothing
			// to aggregate yet.
			logger.Warn(ctx, "Skipping insights warm-up, issues went through kafka")
			return
		}
		if err := warmInsights(ctx, *repo, issueMd, vizMd); err != nil {
			logger.Error(ctx, "Insights warm-up for %s failed: %v", *repo, err)
			os.Exit(1)
		}
		logger.Info(ctx, "Warmed insights cache for %s", *repo)
	}
}

func warmInsights(ctx context.Context, repo string, issueMd *model.Issue, vizMd *model.VizCache) error {
	issues, err := issueMd.AllByRepo(ctx, repo)
	if err != nil {
		return err
	}

	rows := make([]insights.Issue, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		rows = append(rows, insights.Issue{
			State:            issue.State,
			Author:           issue.Author,
			Comments:         issue.Comments,
			CreatedAt:        issue.IssueCreatedAt,
			ClosedAt:         issue.ClosedAt,
			TimeToCloseHours: issue.TimeToCloseHours,
		})
	}

	encoded, err := json.Marshal(insights.Build(rows))
	if err != nil {
		return err
	}
	return vizMd.Put(ctx, repo, model.VizInsights, string(encoded))
}
