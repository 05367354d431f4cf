package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slotwise/scheduling-api/internal/config"
	"github.com/slotwise/scheduling-api/internal/repository/postgres"
	"github.com/slotwise/scheduling-api/pkg/logger"
	redisbroker "github.com/slotwise/scheduling-api/pkg/messaging/redis"
	"github.com/slotwise/scheduling-api/pkg/metrics"
	"github.com/slotwise/scheduling-api/pkg/worker"
)

// The relay worker drains the outbox table to the broker. It only does useful
// work when the API runs with events.mode=outbox, but it is safe to run
// alongside direct mode: the table simply stays empty.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)
	m := metrics.NewMetrics("slotwise", "scheduling_worker")

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, appLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Start(ctx)

	// Periodic cleanup of relayed events.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -cfg.Outbox.RetentionDays)
				deleted, err := outboxRepo.DeleteProcessedBefore(ctx, cutoff)
				if err != nil {
					appLogger.Error(err, "outbox cleanup failed")
					continue
				}
				if deleted > 0 {
					appLogger.Info("outbox cleanup", "deleted", deleted)
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker")
	cancel()
}
