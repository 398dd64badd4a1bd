package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/specforge/engine/internal/models"
	appErr "github.com/specforge/engine/pkg/errors"
)

type ReviewRepository interface {
	BaseRepository[models.ReviewItem]
	GetScoped(ctx context.Context, orgID, reviewID uuid.UUID, dest *models.ReviewItem) error
	ListByProject(ctx context.Context, projectID uuid.UUID, status string) ([]models.ReviewItem, error)
}

type reviewRepository struct {
	BaseRepository[models.ReviewItem]
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{BaseRepository: NewBaseRepository[models.ReviewItem](db), db: db}
}

func (r *reviewRepository) GetScoped(ctx context.Context, orgID, reviewID uuid.UUID, dest *models.ReviewItem) error {
	err := r.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = review_items.project_id").
		Where("review_items.id = ? AND projects.org_id = ?", reviewID, orgID).
		First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "review not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get review failed")
	}
	return nil
}

func (r *reviewRepository) ListByProject(ctx context.Context, projectID uuid.UUID, status string) ([]models.ReviewItem, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.ReviewItem
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list reviews failed")
	}
	return out, nil
}
