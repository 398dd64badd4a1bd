package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/specforge/engine/internal/models"
	"github.com/specforge/engine/internal/render"
	"github.com/specforge/engine/internal/repository"
	"github.com/specforge/engine/internal/services"
	"github.com/specforge/engine/internal/storage"
	appErr "github.com/specforge/engine/pkg/errors"
	"github.com/specforge/engine/pkg/logger"
)

// ExportTaskHandler renders export jobs delivered through the queue. The
// queue is at-least-once, so every step tolerates redelivery: a DONE export
// short-circuits, the PROCESSING claim is a compare-and-swap, and finalize
// only writes over a PROCESSING row.
type ExportTaskHandler struct {
	exportRepo   repository.ExportRepository
	projectRepo  repository.ProjectRepository
	artifactRepo repository.ArtifactRepository
	registry     *render.Registry
	store        storage.Store
}

func NewExportTaskHandler(exportRepo repository.ExportRepository, projectRepo repository.ProjectRepository, artifactRepo repository.ArtifactRepository, registry *render.Registry, store storage.Store) *ExportTaskHandler {
	return &ExportTaskHandler{
		exportRepo:   exportRepo,
		projectRepo:  projectRepo,
		artifactRepo: artifactRepo,
		registry:     registry,
		store:        store,
	}
}

func (h *ExportTaskHandler) HandleRender(ctx context.Context, t *asynq.Task) error {
	var p services.ExportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid export task payload", zap.Error(err))
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(p.ExportID)
	if err != nil {
		logger.L().Error("invalid export id in task", zap.Error(err))
		return fmt.Errorf("parse export id: %v: %w", err, asynq.SkipRetry)
	}

	logger.L().Info("handling export task", zap.String("export_id", id.String()))

	var exp models.ExportFile
	if err := h.exportRepo.GetByID(ctx, id, &exp); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			// The row is gone; retrying cannot help.
			logger.L().Warn("export row missing, dropping task", zap.String("export_id", id.String()))
			return fmt.Errorf("export %s not found: %w", id, asynq.SkipRetry)
		}
		return err
	}

	// Idempotent short-circuit: a completed export is never re-rendered or
	// re-uploaded, regardless of how many times the reference is delivered.
	if exp.Status == models.ExportDone {
		logger.L().Info("export already done, skipping", zap.String("export_id", id.String()))
		return nil
	}

	claimed, err := h.exportRepo.ClaimProcessing(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		// Lost the claim race to a finalizer; nothing left to do.
		logger.L().Info("export not claimable, skipping", zap.String("export_id", id.String()))
		return nil
	}

	file, err := h.renderExport(ctx, &exp)
	if err != nil {
		return h.fail(ctx, id, err)
	}

	key := fmt.Sprintf("exports/%s/%s", exp.ID, file.Filename)
	if err := h.store.Upload(ctx, key, file.Bytes, file.ContentType); err != nil {
		return h.fail(ctx, id, err)
	}

	var publicURL *string
	if u, ok := h.store.PublicURL(key); ok {
		publicURL = &u
	}

	finalized, err := h.exportRepo.MarkDone(ctx, id, key, publicURL)
	if err != nil {
		return err
	}
	if !finalized {
		// A concurrent delivery finalized first; its result stands.
		logger.L().Info("export finalized elsewhere", zap.String("export_id", id.String()))
		return nil
	}

	logger.L().Info("export done",
		zap.String("export_id", id.String()),
		zap.String("key", key),
		zap.Int("bytes", len(file.Bytes)),
	)
	return nil
}

func (h *ExportTaskHandler) renderExport(ctx context.Context, exp *models.ExportFile) (*render.File, error) {
	state, err := h.loadProjectState(ctx, exp.ProjectID)
	if err != nil {
		return nil, err
	}
	return h.registry.Render(ctx, exp.Type, state)
}

func (h *ExportTaskHandler) loadProjectState(ctx context.Context, projectID uuid.UUID) (*render.ProjectState, error) {
	var project models.Project
	if err := h.projectRepo.GetByID(ctx, projectID, &project); err != nil {
		return nil, err
	}

	artifacts, err := h.artifactRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	state := &render.ProjectState{Project: project}
	for _, a := range artifacts {
		as := render.ArtifactState{Artifact: a}
		var latest models.ArtifactVersion
		err := h.artifactRepo.LatestVersion(ctx, a.ID, &latest)
		switch {
		case err == nil:
			as.Latest = &latest
		case appErr.IsCode(err, appErr.CodeNotFound):
			// No versions yet; the renderer decides whether that is fatal.
		default:
			return nil, err
		}
		state.Artifacts = append(state.Artifacts, as)
	}
	return state, nil
}

// fail records the error on the export row and returns the original error so
// the queue's retry policy applies. After the retry budget is exhausted the
// row stays FAILED with the last error text for operators.
func (h *ExportTaskHandler) fail(ctx context.Context, exportID uuid.UUID, cause error) error {
	logger.L().Error("export failed", zap.String("export_id", exportID.String()), zap.Error(cause))
	if _, err := h.exportRepo.MarkFailed(ctx, exportID, cause.Error()); err != nil {
		logger.L().Error("mark export failed errored", zap.String("export_id", exportID.String()), zap.Error(err))
	}
	return cause
}
