package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/specforge/engine/internal/models"
	"github.com/specforge/engine/internal/repository"
	appErr "github.com/specforge/engine/pkg/errors"
	"github.com/specforge/engine/pkg/logger"
)

type ProjectService interface {
	CreateProject(ctx context.Context, orgID, userID uuid.UUID, input *CreateProjectInput) (*models.Project, []models.Artifact, error)
	GetProject(ctx context.Context, orgID, projectID uuid.UUID) (*models.Project, []models.Artifact, error)
	ListProjects(ctx context.Context, orgID uuid.UUID) ([]models.Project, error)
}

type CreateProjectInput struct {
	Name        string
	Description string
}

type projectService struct {
	db          *gorm.DB
	projectRepo repository.ProjectRepository
}

func NewProjectService(db *gorm.DB, projectRepo repository.ProjectRepository) ProjectService {
	return &projectService{db: db, projectRepo: projectRepo}
}

var _ ProjectService = (*projectService)(nil)

// CreateProject creates the project and seeds one empty artifact per type,
// in a single transaction. The (project, type) unique index means seeding is
// the only place artifacts are created.
func (s *projectService) CreateProject(ctx context.Context, orgID, userID uuid.UUID, input *CreateProjectInput) (*models.Project, []models.Artifact, error) {
	p := &models.Project{
		OrgID:       orgID,
		Name:        input.Name,
		Description: input.Description,
		CreatedByID: userID,
	}

	var artifacts []models.Artifact
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "create project failed")
		}
		for _, t := range models.ArtifactTypes {
			artifacts = append(artifacts, models.Artifact{
				ProjectID: p.ID,
				Type:      t,
				Title:     models.ArtifactTitles[t],
			})
		}
		if err := tx.Create(&artifacts).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "seed artifacts failed")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.L().Info("project created",
		zap.String("project_id", p.ID.String()),
		zap.String("org_id", orgID.String()),
		zap.Int("artifacts", len(artifacts)),
	)
	return p, artifacts, nil
}

func (s *projectService) GetProject(ctx context.Context, orgID, projectID uuid.UUID) (*models.Project, []models.Artifact, error) {
	var p models.Project
	if err := s.projectRepo.GetScoped(ctx, orgID, projectID, &p); err != nil {
		return nil, nil, err
	}
	var artifacts []models.Artifact
	if err := s.db.WithContext(ctx).Where("project_id = ?", p.ID).Order("type ASC").Find(&artifacts).Error; err != nil {
		return nil, nil, appErr.Wrap(err, appErr.CodeInternal, "list artifacts failed")
	}
	return &p, artifacts, nil
}

func (s *projectService) ListProjects(ctx context.Context, orgID uuid.UUID) ([]models.Project, error) {
	return s.projectRepo.ListByOrg(ctx, orgID)
}
