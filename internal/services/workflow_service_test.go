package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/specforge/engine/internal/llm"
	"github.com/specforge/engine/internal/models"
	appErr "github.com/specforge/engine/pkg/errors"
)

func TestWorkflowService_Run(t *testing.T) {
	orgID := uuid.New()
	projectID := uuid.New()
	userID := uuid.New()

	input := llm.WorkflowInput{Idea: "a note-taking app for busy families"}

	t.Run("records run and pending review", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		reviewRepo := &mockReviewRepository{}
		runRepo := &mockRunRepository{}
		gen := &mockGenerator{}
		svc := NewWorkflowService(projectRepo, reviewRepo, runRepo, gen)

		project := &models.Project{ID: projectID, OrgID: orgID, Name: "Acme Notes"}
		projectRepo.On("GetScoped", mock.Anything, orgID, projectID, &models.Project{}).Return(nil, project).Once()

		out := "# PRD\n\nGenerated."
		gen.On("Generate", mock.Anything, models.ArtifactPRD, input).Return(&llm.Result{
			OutputText: &out,
			Meta:       llm.Meta{Model: "mock-v1"},
		}, nil).Once()

		runRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.LLMRun) bool {
			return r.ProjectID == projectID && r.WorkflowKey == llm.WorkflowGeneratePRD && r.CreatedByID == userID
		})).Return(nil).Once()

		reviewRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.ReviewItem) bool {
			return r.ProjectID == projectID &&
				r.ArtifactType == models.ArtifactPRD &&
				r.Status == models.ReviewPending &&
				r.OutputText != nil && *r.OutputText == out &&
				len(r.InputJSON) > 0
		})).Return(nil).Once()

		result, err := svc.Run(context.Background(), orgID, projectID, userID, llm.WorkflowGeneratePRD, input)
		require.NoError(t, err)
		require.Equal(t, models.ReviewPending, result.Review.Status)
		require.Equal(t, "mock-v1", result.Run.Model)

		mock.AssertExpectationsForObjects(t, projectRepo, reviewRepo, runRepo, gen)
	})

	t.Run("structured output lands on the review", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		reviewRepo := &mockReviewRepository{}
		runRepo := &mockRunRepository{}
		gen := &mockGenerator{}
		svc := NewWorkflowService(projectRepo, reviewRepo, runRepo, gen)

		project := &models.Project{ID: projectID, OrgID: orgID}
		projectRepo.On("GetScoped", mock.Anything, orgID, projectID, &models.Project{}).Return(nil, project).Once()

		gen.On("Generate", mock.Anything, models.ArtifactOpenAPI, input).Return(&llm.Result{
			OutputJSON: datatypes.JSON(`{"openapi":"3.0.3"}`),
			Meta:       llm.Meta{Model: "mock-v1"},
		}, nil).Once()
		runRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		reviewRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.ReviewItem) bool {
			return len(r.OutputJSON) > 0 && r.OutputText == nil
		})).Return(nil).Once()

		result, err := svc.Run(context.Background(), orgID, projectID, userID, llm.WorkflowGenerateOpenAPI, input)
		require.NoError(t, err)
		require.NotEmpty(t, result.Review.OutputJSON)
	})

	t.Run("unknown workflow key is invalid", func(t *testing.T) {
		svc := NewWorkflowService(&mockProjectRepository{}, &mockReviewRepository{}, &mockRunRepository{}, &mockGenerator{})

		_, err := svc.Run(context.Background(), orgID, projectID, userID, "GENERATE_LOGO", input)
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	})

	t.Run("generation failure is unavailable", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		reviewRepo := &mockReviewRepository{}
		runRepo := &mockRunRepository{}
		gen := &mockGenerator{}
		svc := NewWorkflowService(projectRepo, reviewRepo, runRepo, gen)

		project := &models.Project{ID: projectID, OrgID: orgID}
		projectRepo.On("GetScoped", mock.Anything, orgID, projectID, &models.Project{}).Return(nil, project).Once()
		gen.On("Generate", mock.Anything, models.ArtifactPRD, input).
			Return(nil, appErr.New(appErr.CodeUnavailable, "provider timeout")).Once()

		_, err := svc.Run(context.Background(), orgID, projectID, userID, llm.WorkflowGeneratePRD, input)
		require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
		runRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		reviewRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
