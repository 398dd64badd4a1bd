package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/specforge/engine/internal/queue/tasks"
	"github.com/specforge/engine/internal/render"
	"github.com/specforge/engine/internal/repository"
	"github.com/specforge/engine/internal/services"
	"github.com/specforge/engine/internal/storage"
	"github.com/specforge/engine/pkg/config"
	"github.com/specforge/engine/pkg/database"
	"github.com/specforge/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	store, err := storage.NewR2Store(ctx, storage.R2Config{
		Endpoint:        cfg.R2Endpoint,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		Bucket:          cfg.R2Bucket,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		log.Fatal("failed to configure object storage", zap.Error(err))
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
			Queues: map[string]int{
				services.ExportQueueName: 10,
			},
			RetryDelayFunc: services.ExportRetryDelay(cfg.ExportRetryBase),
		},
	)

	projectRepo := repository.NewProjectRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	exportRepo := repository.NewExportRepository(db)

	handler := tasks.NewExportTaskHandler(exportRepo, projectRepo, artifactRepo, render.NewRegistry(), store)

	mux := asynq.NewServeMux()
	mux.HandleFunc(services.TypeExportRender, handler.HandleRender)

	errCh := make(chan error, 1)
	go func() {
		log.Info("asynq worker starting",
			zap.Int("concurrency", cfg.AsynqConcurrency),
			zap.String("queue", services.ExportQueueName),
		)
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	srv.Shutdown()
}
