package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/specforge/engine/internal/api"
	"github.com/specforge/engine/internal/api/handlers"
	"github.com/specforge/engine/internal/llm"
	"github.com/specforge/engine/internal/models"
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

	log.Info("starting specforge engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
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

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer queueClient.Close()

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrgRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	exportRepo := repository.NewExportRepository(db)
	runRepo := repository.NewBaseRepository[models.LLMRun](db)

	generator := llm.New(cfg.LLMProvider)

	authSvc := services.NewAuthService(userRepo, jwtSecret)
	orgSvc := services.NewOrgService(db, orgRepo)
	projectSvc := services.NewProjectService(db, projectRepo)
	artifactSvc := services.NewArtifactService(artifactRepo)
	workflowSvc := services.NewWorkflowService(projectRepo, reviewRepo, runRepo, generator)
	reviewSvc := services.NewReviewService(db, projectRepo, reviewRepo, artifactRepo)
	exportSvc := services.NewExportService(projectRepo, exportRepo, queueClient, store, cfg.ExportMaxAttempts, cfg.SignedURLTTL)

	router := api.NewRouter(api.Dependencies{
		HMACSecret:      jwtSecret,
		OrgService:      orgSvc,
		AuthHandler:     handlers.NewAuthHandler(authSvc),
		OrgHandler:      handlers.NewOrgHandler(orgSvc),
		ProjectHandler:  handlers.NewProjectHandler(projectSvc),
		ArtifactHandler: handlers.NewArtifactHandler(artifactSvc),
		WorkflowHandler: handlers.NewWorkflowHandler(workflowSvc),
		ReviewHandler:   handlers.NewReviewHandler(reviewSvc),
		ExportHandler:   handlers.NewExportHandler(exportSvc),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
