package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/internal/model"
	"github.com/retroam/agileai/pkg/db"
	"github.com/retroam/agileai/pkg/kafka"
	applog "github.com/retroam/agileai/pkg/log"
)

const (
	batchSize    = 100
	batchTimeout = 5 * time.Second
)

func main() {
	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, _ := applog.NewCslLogger()
	mysql, _ := db.NewMysql(config)

	issueMd, _ := model.NewIssue(config, logger, mysql)
	if err := mysql.Migrate(issueMd); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := kafka.NewConsumer(config, logger,
		config.Kafka.Producer.TopicIssue, config.Kafka.Consumer.GroupID)
	if err != nil {
		log.Fatalf("Failed to create kafka consumer: %v", err)
	}

	// Issues land in a channel and get flushed to MySQL in batches, either
	// when a batch fills or when the flush timer fires.
	messages := make(chan model.IssueMessage, batchSize*2)
	go processBatchedIssues(ctx, messages, logger, issueMd)

	consumer.RegisterHandler("issue", func(data []byte) error {
		var msg model.IssueMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal issue message: %w", err)
		}
		select {
		case messages <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error(ctx, "Issue consumer error: %v", err)
		}
	}()
	logger.Info(ctx, "Issue consumer started on topic %s", config.Kafka.Producer.TopicIssue)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info(ctx, "Received shutdown signal, gracefully shutting down...")
	cancel()
}

func processBatchedIssues(ctx context.Context, messages <-chan model.IssueMessage, logger applog.Logger, issueMd *model.Issue) {
	var batch []model.IssueMessage
	timer := time.NewTimer(batchTimeout)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := issueMd.CreateBatch(batch); err != nil {
			logger.Error(ctx, "Failed to save batch of %d issues: %v", len(batch), err)
		} else {
			logger.Info(ctx, "Saved batch of %d issues", len(batch))
		}
		batch = nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case msg := <-messages:
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				flush()
				timer.Reset(batchTimeout)
			}

		case <-timer.C:
			flush()
			timer.Reset(batchTimeout)
		}
	}
}
