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

// OrgService manages tenants and resolves the member context trusted by
// every org-scoped operation.
type OrgService interface {
	CreateOrg(ctx context.Context, userID uuid.UUID, name, slug string) (*models.Org, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.Org, error)
	// ResolveMember returns the org and the caller's membership for a slug,
	// or a forbidden error when the caller is not a member.
	ResolveMember(ctx context.Context, slug string, userID uuid.UUID) (*models.Org, *models.OrgMember, error)
}

type orgService struct {
	db      *gorm.DB
	orgRepo repository.OrgRepository
}

func NewOrgService(db *gorm.DB, orgRepo repository.OrgRepository) OrgService {
	return &orgService{db: db, orgRepo: orgRepo}
}

var _ OrgService = (*orgService)(nil)

func (s *orgService) CreateOrg(ctx context.Context, userID uuid.UUID, name, slug string) (*models.Org, error) {
	org := &models.Org{Name: name, Slug: slug}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeConflict, "org slug already taken")
		}
		member := &models.OrgMember{OrgID: org.ID, UserID: userID, Role: models.RoleOwner}
		if err := tx.Create(member).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "create owner membership failed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("org created", zap.String("org_id", org.ID.String()), zap.String("slug", slug))
	return org, nil
}

func (s *orgService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Org, error) {
	return s.orgRepo.ListByUser(ctx, userID)
}

func (s *orgService) ResolveMember(ctx context.Context, slug string, userID uuid.UUID) (*models.Org, *models.OrgMember, error) {
	var org models.Org
	if err := s.orgRepo.GetBySlug(ctx, slug, &org); err != nil {
		return nil, nil, err
	}
	var member models.OrgMember
	if err := s.orgRepo.GetMembership(ctx, org.ID, userID, &member); err != nil {
		return nil, nil, err
	}
	return &org, &member, nil
}
