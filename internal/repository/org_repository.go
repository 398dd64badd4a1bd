package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/specforge/engine/internal/models"
	appErr "github.com/specforge/engine/pkg/errors"
)

type OrgRepository interface {
	BaseRepository[models.Org]
	GetBySlug(ctx context.Context, slug string, dest *models.Org) error
	GetMembership(ctx context.Context, orgID, userID uuid.UUID, dest *models.OrgMember) error
	AddMember(ctx context.Context, member *models.OrgMember) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Org, error)
}

type orgRepository struct {
	BaseRepository[models.Org]
	db *gorm.DB
}

func NewOrgRepository(db *gorm.DB) OrgRepository {
	return &orgRepository{BaseRepository: NewBaseRepository[models.Org](db), db: db}
}

func (r *orgRepository) GetBySlug(ctx context.Context, slug string, dest *models.Org) error {
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "org not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get org by slug failed")
	}
	return nil
}

func (r *orgRepository) GetMembership(ctx context.Context, orgID, userID uuid.UUID, dest *models.OrgMember) error {
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeForbidden, "not a member of this org")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get membership failed")
	}
	return nil
}

func (r *orgRepository) AddMember(ctx context.Context, member *models.OrgMember) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "add org member failed")
	}
	return nil
}

func (r *orgRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Org, error) {
	var out []models.Org
	err := r.db.WithContext(ctx).
		Joins("JOIN org_members ON org_members.org_id = orgs.id").
		Where("org_members.user_id = ?", userID).
		Order("orgs.created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list orgs by user failed")
	}
	return out, nil
}
