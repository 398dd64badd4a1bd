package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/specforge/engine/internal/models"
	"github.com/specforge/engine/internal/repository"
	appErr "github.com/specforge/engine/pkg/errors"
	"github.com/specforge/engine/pkg/logger"
)

// ReviewService drives the PENDING -> APPROVED | REJECTED workflow. Approval
// appends an artifact version and flips the review in one transaction; no
// observer ever sees one without the other.
type ReviewService interface {
	List(ctx context.Context, orgID, projectID uuid.UUID, status string) ([]models.ReviewItem, error)
	Approve(ctx context.Context, orgID, reviewID, userID uuid.UUID, input *ApproveInput) (*ApproveResult, error)
	Reject(ctx context.Context, orgID, reviewID, userID uuid.UUID, note string) (*models.ReviewItem, error)
}

type ApproveInput struct {
	// OutputText/OutputJSON override the review's stored candidate output
	// when present.
	OutputText *string
	OutputJSON datatypes.JSON
	Note       *string
}

type ApproveResult struct {
	Version *models.ArtifactVersion
	Review  *models.ReviewItem
}

type reviewService struct {
	db           *gorm.DB
	projectRepo  repository.ProjectRepository
	reviewRepo   repository.ReviewRepository
	artifactRepo repository.ArtifactRepository
}

func NewReviewService(db *gorm.DB, projectRepo repository.ProjectRepository, reviewRepo repository.ReviewRepository, artifactRepo repository.ArtifactRepository) ReviewService {
	return &reviewService{db: db, projectRepo: projectRepo, reviewRepo: reviewRepo, artifactRepo: artifactRepo}
}

var _ ReviewService = (*reviewService)(nil)

func (s *reviewService) List(ctx context.Context, orgID, projectID uuid.UUID, status string) ([]models.ReviewItem, error) {
	var p models.Project
	if err := s.projectRepo.GetScoped(ctx, orgID, projectID, &p); err != nil {
		return nil, err
	}
	return s.reviewRepo.ListByProject(ctx, p.ID, status)
}

func (s *reviewService) Approve(ctx context.Context, orgID, reviewID, userID uuid.UUID, input *ApproveInput) (*ApproveResult, error) {
	// Scope check outside the transaction; the PENDING check is repeated
	// under a row lock inside it.
	var scoped models.ReviewItem
	if err := s.reviewRepo.GetScoped(ctx, orgID, reviewID, &scoped); err != nil {
		return nil, err
	}

	var result ApproveResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.ReviewItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&review, "id = ?", reviewID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.New(appErr.CodeNotFound, "review not found")
			}
			return appErr.Wrap(err, appErr.CodeInternal, "lock review failed")
		}
		if review.Status != models.ReviewPending {
			return appErr.New(appErr.CodeConflict, "review is not pending")
		}

		finalText := review.OutputText
		if input.OutputText != nil {
			finalText = input.OutputText
		}
		finalJSON := review.OutputJSON
		if len(input.OutputJSON) > 0 {
			finalJSON = input.OutputJSON
		}
		content := repository.VersionContent{Text: finalText, JSON: finalJSON}
		if content.Empty() {
			return appErr.New(appErr.CodeInvalid, "no output to approve")
		}

		var artifact models.Artifact
		if err := s.artifactRepo.GetByProjectAndType(ctx, review.ProjectID, review.ArtifactType, &artifact); err != nil {
			return err
		}

		version, err := s.artifactRepo.AppendVersionTx(tx, artifact.ID, userID, content)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		review.Status = models.ReviewApproved
		review.OutputText = finalText
		review.OutputJSON = finalJSON
		review.ReviewedByID = &userID
		review.ReviewedAt = &now
		review.ReviewerNote = input.Note
		if err := tx.Save(&review).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "update review failed")
		}

		result = ApproveResult{Version: version, Review: &review}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("review approved",
		zap.String("review_id", reviewID.String()),
		zap.String("artifact_type", result.Review.ArtifactType),
		zap.Int("version", result.Version.Version),
		zap.String("user_id", userID.String()),
	)
	return &result, nil
}

func (s *reviewService) Reject(ctx context.Context, orgID, reviewID, userID uuid.UUID, note string) (*models.ReviewItem, error) {
	if note == "" {
		return nil, appErr.New(appErr.CodeInvalid, "a note is required to reject")
	}

	var scoped models.ReviewItem
	if err := s.reviewRepo.GetScoped(ctx, orgID, reviewID, &scoped); err != nil {
		return nil, err
	}

	var rejected models.ReviewItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.ReviewItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&review, "id = ?", reviewID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.New(appErr.CodeNotFound, "review not found")
			}
			return appErr.Wrap(err, appErr.CodeInternal, "lock review failed")
		}
		if review.Status != models.ReviewPending {
			return appErr.New(appErr.CodeConflict, "review is not pending")
		}

		now := time.Now().UTC()
		review.Status = models.ReviewRejected
		review.ReviewedByID = &userID
		review.ReviewedAt = &now
		review.ReviewerNote = &note
		if err := tx.Save(&review).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "update review failed")
		}
		rejected = review
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("review rejected",
		zap.String("review_id", reviewID.String()),
		zap.String("user_id", userID.String()),
	)
	return &rejected, nil
}
