package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/specforge/engine/internal/models"
	"github.com/specforge/engine/internal/repository"
	"github.com/specforge/engine/internal/storage"
	appErr "github.com/specforge/engine/pkg/errors"
	"github.com/specforge/engine/pkg/logger"
)

// TypeExportRender is the queue task type for export rendering. The payload
// carries only the export id; the worker loads everything else from the
// database, so redelivery always operates on current state.
const TypeExportRender = "export:render"

// ExportQueueName is the asynq queue exports are routed to.
const ExportQueueName = "exports"

// ExportPayload is the task payload for export render tasks.
type ExportPayload struct {
	ExportID string `json:"export_id"`
}

// ExportRetryDelay builds the worker's backoff schedule: base before the
// first redelivery, doubling each time (2s, 4s, 8s, ...). asynq passes n as
// the number of retries already consumed, starting at 0.
func ExportRetryDelay(base time.Duration) func(n int, e error, t *asynq.Task) time.Duration {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		if n < 0 {
			n = 0
		}
		return base << n
	}
}

// ExportService creates export jobs, enqueues their references, and answers
// download URL requests. Status transitions after creation belong to the
// worker.
type ExportService interface {
	CreateExport(ctx context.Context, orgID, projectID, userID uuid.UUID, exportType string) (*models.ExportFile, error)
	ListExports(ctx context.Context, orgID, projectID uuid.UUID) ([]models.ExportFile, error)
	DownloadURL(ctx context.Context, orgID, exportID uuid.UUID) (string, error)

	// RequeueExport re-enqueues the reference for a QUEUED or stuck
	// PROCESSING export. Operator recovery path: there is no lease or
	// heartbeat, so a worker crash mid-render leaves the row in PROCESSING
	// until someone calls this.
	RequeueExport(ctx context.Context, orgID, exportID uuid.UUID) error
}

type exportService struct {
	projectRepo repository.ProjectRepository
	exportRepo  repository.ExportRepository
	asynqClient *asynq.Client
	store       storage.Store
	maxAttempts int
	signedTTL   time.Duration
}

func NewExportService(projectRepo repository.ProjectRepository, exportRepo repository.ExportRepository, client *asynq.Client, store storage.Store, maxAttempts int, signedTTL time.Duration) ExportService {
	return &exportService{
		projectRepo: projectRepo,
		exportRepo:  exportRepo,
		asynqClient: client,
		store:       store,
		maxAttempts: maxAttempts,
		signedTTL:   signedTTL,
	}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) CreateExport(ctx context.Context, orgID, projectID, userID uuid.UUID, exportType string) (*models.ExportFile, error) {
	var p models.Project
	if err := s.projectRepo.GetScoped(ctx, orgID, projectID, &p); err != nil {
		return nil, err
	}

	exp := &models.ExportFile{
		ProjectID:     p.ID,
		Type:          exportType,
		Status:        models.ExportQueued,
		RequestedByID: userID,
	}
	if err := s.exportRepo.Create(ctx, exp); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, exp.ID); err != nil {
		// The row stays QUEUED so an operator can requeue it; only the
		// transport failure is surfaced.
		logger.L().Error("enqueue export task failed", zap.Error(err), zap.String("export_id", exp.ID.String()))
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "enqueue export task failed")
	}

	logger.L().Info("export created and enqueued",
		zap.String("export_id", exp.ID.String()),
		zap.String("project_id", p.ID.String()),
		zap.String("type", exportType),
	)
	return exp, nil
}

func (s *exportService) enqueue(ctx context.Context, exportID uuid.UUID) error {
	payload, err := json.Marshal(ExportPayload{ExportID: exportID.String()})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeExportRender, payload)
	// asynq counts MaxRetry on top of the first delivery, so total
	// executions equal attempts.
	retries := s.maxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	_, err = s.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue(ExportQueueName),
		asynq.MaxRetry(retries),
	)
	return err
}

func (s *exportService) ListExports(ctx context.Context, orgID, projectID uuid.UUID) ([]models.ExportFile, error) {
	var p models.Project
	if err := s.projectRepo.GetScoped(ctx, orgID, projectID, &p); err != nil {
		return nil, err
	}
	return s.exportRepo.ListByProject(ctx, p.ID)
}

func (s *exportService) DownloadURL(ctx context.Context, orgID, exportID uuid.UUID) (string, error) {
	var exp models.ExportFile
	if err := s.exportRepo.GetScoped(ctx, orgID, exportID, &exp); err != nil {
		return "", err
	}
	if exp.Status != models.ExportDone {
		return "", appErr.New(appErr.CodeConflict, "export is not ready yet")
	}
	if exp.PublicURL != nil && *exp.PublicURL != "" {
		return *exp.PublicURL, nil
	}
	if exp.R2Key == nil || *exp.R2Key == "" {
		return "", appErr.New(appErr.CodeInternal, "export is done but has no storage key")
	}
	return s.store.SignedURL(ctx, *exp.R2Key, s.signedTTL)
}

func (s *exportService) RequeueExport(ctx context.Context, orgID, exportID uuid.UUID) error {
	var exp models.ExportFile
	if err := s.exportRepo.GetScoped(ctx, orgID, exportID, &exp); err != nil {
		return err
	}
	if exp.Status != models.ExportQueued && exp.Status != models.ExportProcessing {
		return appErr.New(appErr.CodeConflict, "only queued or processing exports can be requeued")
	}
	if err := s.enqueue(ctx, exp.ID); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue export task failed")
	}
	logger.L().Info("export requeued", zap.String("export_id", exp.ID.String()), zap.String("status", exp.Status))
	return nil
}
