package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/specforge/engine/internal/models"
	"github.com/specforge/engine/internal/repository"
	"github.com/specforge/engine/pkg/logger"
)

// ArtifactService owns the artifact version sequence: content enters it only
// as immutable, monotonically numbered appends.
type ArtifactService interface {
	GetArtifact(ctx context.Context, orgID, artifactID uuid.UUID) (*models.Artifact, error)
	ListVersions(ctx context.Context, orgID, artifactID uuid.UUID) ([]models.ArtifactVersion, error)
	AppendVersion(ctx context.Context, orgID, artifactID, userID uuid.UUID, input *AppendVersionInput) (*models.ArtifactVersion, error)
}

type AppendVersionInput struct {
	ContentText *string
	ContentJSON datatypes.JSON
}

type artifactService struct {
	artifactRepo repository.ArtifactRepository
}

func NewArtifactService(artifactRepo repository.ArtifactRepository) ArtifactService {
	return &artifactService{artifactRepo: artifactRepo}
}

var _ ArtifactService = (*artifactService)(nil)

func (s *artifactService) GetArtifact(ctx context.Context, orgID, artifactID uuid.UUID) (*models.Artifact, error) {
	var a models.Artifact
	if err := s.artifactRepo.GetScoped(ctx, orgID, artifactID, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *artifactService) ListVersions(ctx context.Context, orgID, artifactID uuid.UUID) ([]models.ArtifactVersion, error) {
	var a models.Artifact
	if err := s.artifactRepo.GetScoped(ctx, orgID, artifactID, &a); err != nil {
		return nil, err
	}
	return s.artifactRepo.ListVersions(ctx, a.ID)
}

func (s *artifactService) AppendVersion(ctx context.Context, orgID, artifactID, userID uuid.UUID, input *AppendVersionInput) (*models.ArtifactVersion, error) {
	var a models.Artifact
	if err := s.artifactRepo.GetScoped(ctx, orgID, artifactID, &a); err != nil {
		return nil, err
	}

	v, err := s.artifactRepo.AppendVersion(ctx, a.ID, userID, repository.VersionContent{
		Text: input.ContentText,
		JSON: input.ContentJSON,
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("artifact version appended",
		zap.String("artifact_id", a.ID.String()),
		zap.Int("version", v.Version),
		zap.String("user_id", userID.String()),
	)
	return v, nil
}
