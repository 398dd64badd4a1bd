package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/specforge/engine/internal/models"
	appErr "github.com/specforge/engine/pkg/errors"
)

type ExportRepository interface {
	BaseRepository[models.ExportFile]
	GetScoped(ctx context.Context, orgID, exportID uuid.UUID, dest *models.ExportFile) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ExportFile, error)

	// ClaimProcessing moves the export into PROCESSING. The compare-and-swap
	// predicate admits QUEUED (first delivery), PROCESSING (redelivery of an
	// in-flight job) and FAILED (queue-driven retry); a DONE row is never
	// claimed again. Returns false when the row was not claimable.
	ClaimProcessing(ctx context.Context, exportID uuid.UUID) (bool, error)

	// MarkDone finalizes a PROCESSING export with its storage key and URL.
	// Returns false when the row was not in PROCESSING, which means a
	// concurrent finalize already won; the caller must not overwrite it.
	MarkDone(ctx context.Context, exportID uuid.UUID, key string, publicURL *string) (bool, error)

	// MarkFailed records the failure on a PROCESSING export.
	MarkFailed(ctx context.Context, exportID uuid.UUID, errText string) (bool, error)
}

type exportRepository struct {
	BaseRepository[models.ExportFile]
	db *gorm.DB
}

func NewExportRepository(db *gorm.DB) ExportRepository {
	return &exportRepository{BaseRepository: NewBaseRepository[models.ExportFile](db), db: db}
}

func (r *exportRepository) GetScoped(ctx context.Context, orgID, exportID uuid.UUID, dest *models.ExportFile) error {
	err := r.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = export_files.project_id").
		Where("export_files.id = ? AND projects.org_id = ?", exportID, orgID).
		First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "export not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get export failed")
	}
	return nil
}

func (r *exportRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ExportFile, error) {
	var out []models.ExportFile
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list exports failed")
	}
	return out, nil
}

func (r *exportRepository) ClaimProcessing(ctx context.Context, exportID uuid.UUID) (bool, error) {
	// A reclaim after FAILED starts a fresh attempt, so the prior attempt's
	// error and completion timestamp go away with it.
	res := r.db.WithContext(ctx).Model(&models.ExportFile{}).
		Where("id = ? AND status IN ?", exportID, []string{models.ExportQueued, models.ExportProcessing, models.ExportFailed}).
		Updates(map[string]any{
			"status":       models.ExportProcessing,
			"error":        nil,
			"completed_at": nil,
		})
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "claim export failed")
	}
	return res.RowsAffected > 0, nil
}

func (r *exportRepository) MarkDone(ctx context.Context, exportID uuid.UUID, key string, publicURL *string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.ExportFile{}).
		Where("id = ? AND status = ?", exportID, models.ExportProcessing).
		Updates(map[string]any{
			"status":       models.ExportDone,
			"r2_key":       key,
			"public_url":   publicURL,
			"error":        nil,
			"completed_at": now,
		})
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "finalize export failed")
	}
	return res.RowsAffected > 0, nil
}

func (r *exportRepository) MarkFailed(ctx context.Context, exportID uuid.UUID, errText string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.ExportFile{}).
		Where("id = ? AND status = ?", exportID, models.ExportProcessing).
		Updates(map[string]any{
			"status":       models.ExportFailed,
			"error":        errText,
			"completed_at": now,
		})
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "mark export failed failed")
	}
	return res.RowsAffected > 0, nil
}
