//go:build integration

// Integration tests run against a disposable Postgres container and need
// Docker:
//
//	go test -tags=integration ./internal/services/...
package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/specforge/engine/internal/models"
	"github.com/specforge/engine/internal/repository"
	appErr "github.com/specforge/engine/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("engine_test"),
		tcpostgres.WithUsername("engine"),
		tcpostgres.WithPassword("engine"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Org{},
		&models.Project{},
		&models.Artifact{},
		&models.ArtifactVersion{},
		&models.ReviewItem{},
	))
	return db
}

func TestReviewService_Approve_Atomicity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	projectRepo := repository.NewProjectRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	svc := NewReviewService(db, projectRepo, reviewRepo, artifactRepo)

	org := &models.Org{ID: uuid.New(), Name: "Acme", Slug: "acme"}
	require.NoError(t, db.Create(org).Error)
	project := &models.Project{ID: uuid.New(), OrgID: org.ID, Name: "Notes", CreatedByID: uuid.New()}
	require.NoError(t, db.Create(project).Error)
	artifact := &models.Artifact{ID: uuid.New(), ProjectID: project.ID, Type: models.ArtifactPRD, Title: "PRD"}
	require.NoError(t, db.Create(artifact).Error)

	userID := uuid.New()
	candidate := "# PRD\n\nCandidate."
	review := &models.ReviewItem{
		ID:           uuid.New(),
		ProjectID:    project.ID,
		ArtifactType: models.ArtifactPRD,
		Status:       models.ReviewPending,
		OutputText:   &candidate,
		CreatedByID:  userID,
	}
	require.NoError(t, db.Create(review).Error)

	t.Run("approve appends a version and flips the review together", func(t *testing.T) {
		result, err := svc.Approve(ctx, org.ID, review.ID, userID, &ApproveInput{})
		require.NoError(t, err)
		require.Equal(t, models.ReviewApproved, result.Review.Status)
		require.Equal(t, 1, result.Version.Version)
		require.NotNil(t, result.Review.ReviewedAt)

		versions, err := artifactRepo.ListVersions(ctx, artifact.ID)
		require.NoError(t, err)
		require.Len(t, versions, 1)
		require.Equal(t, candidate, *versions[0].ContentText)
	})

	t.Run("terminal review cannot be approved or rejected again", func(t *testing.T) {
		_, err := svc.Approve(ctx, org.ID, review.ID, userID, &ApproveInput{})
		require.True(t, appErr.IsCode(err, appErr.CodeConflict))

		_, err = svc.Reject(ctx, org.ID, review.ID, userID, "too late")
		require.True(t, appErr.IsCode(err, appErr.CodeConflict))

		// The failed second approve must not have appended anything.
		versions, err := artifactRepo.ListVersions(ctx, artifact.ID)
		require.NoError(t, err)
		require.Len(t, versions, 1)
	})

	t.Run("approve without content appends nothing", func(t *testing.T) {
		empty := &models.ReviewItem{
			ID:           uuid.New(),
			ProjectID:    project.ID,
			ArtifactType: models.ArtifactPRD,
			Status:       models.ReviewPending,
			CreatedByID:  userID,
		}
		require.NoError(t, db.Create(empty).Error)

		_, err := svc.Approve(ctx, org.ID, empty.ID, userID, &ApproveInput{})
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

		var got models.ReviewItem
		require.NoError(t, db.First(&got, "id = ?", empty.ID).Error)
		require.Equal(t, models.ReviewPending, got.Status)

		versions, err := artifactRepo.ListVersions(ctx, artifact.ID)
		require.NoError(t, err)
		require.Len(t, versions, 1)
	})

	t.Run("override output replaces the stored candidate", func(t *testing.T) {
		second := &models.ReviewItem{
			ID:           uuid.New(),
			ProjectID:    project.ID,
			ArtifactType: models.ArtifactPRD,
			Status:       models.ReviewPending,
			OutputText:   &candidate,
			CreatedByID:  userID,
		}
		require.NoError(t, db.Create(second).Error)

		edited := "# PRD\n\nEdited by reviewer."
		result, err := svc.Approve(ctx, org.ID, second.ID, userID, &ApproveInput{OutputText: &edited})
		require.NoError(t, err)
		require.Equal(t, 2, result.Version.Version)
		require.Equal(t, edited, *result.Version.ContentText)
		require.Equal(t, edited, *result.Review.OutputText)
	})
}
