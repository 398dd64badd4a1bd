package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/specforge/engine/internal/models"
	appErr "github.com/specforge/engine/pkg/errors"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Project, error)
	// GetScoped loads a project only if it belongs to the given org;
	// a project in another org is indistinguishable from a missing one.
	GetScoped(ctx context.Context, orgID, projectID uuid.UUID, dest *models.Project) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Where("org_id = ?", orgID).Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects failed")
	}
	return out, nil
}

func (r *projectRepository) GetScoped(ctx context.Context, orgID, projectID uuid.UUID, dest *models.Project) error {
	err := r.db.WithContext(ctx).Where("id = ? AND org_id = ?", projectID, orgID).First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get project failed")
	}
	return nil
}
