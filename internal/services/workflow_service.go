package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/specforge/engine/internal/llm"
	"github.com/specforge/engine/internal/models"
	"github.com/specforge/engine/internal/repository"
	appErr "github.com/specforge/engine/pkg/errors"
	"github.com/specforge/engine/pkg/logger"
)

// WorkflowService runs a generation workflow: it calls the LLM collaborator,
// records the usage row, and parks the candidate output as a PENDING review.
// Nothing becomes an artifact version until a human approves it.
type WorkflowService interface {
	Run(ctx context.Context, orgID, projectID, userID uuid.UUID, workflowKey string, input llm.WorkflowInput) (*WorkflowResult, error)
}

type WorkflowResult struct {
	Run    *models.LLMRun
	Review *models.ReviewItem
}

type workflowService struct {
	projectRepo repository.ProjectRepository
	reviewRepo  repository.ReviewRepository
	runRepo     repository.BaseRepository[models.LLMRun]
	generator   llm.Generator
}

func NewWorkflowService(projectRepo repository.ProjectRepository, reviewRepo repository.ReviewRepository, runRepo repository.BaseRepository[models.LLMRun], generator llm.Generator) WorkflowService {
	return &workflowService{projectRepo: projectRepo, reviewRepo: reviewRepo, runRepo: runRepo, generator: generator}
}

var _ WorkflowService = (*workflowService)(nil)

func (s *workflowService) Run(ctx context.Context, orgID, projectID, userID uuid.UUID, workflowKey string, input llm.WorkflowInput) (*WorkflowResult, error) {
	artifactType, ok := llm.WorkflowToArtifact[workflowKey]
	if !ok {
		return nil, appErr.New(appErr.CodeInvalid, "invalid workflow key")
	}

	var p models.Project
	if err := s.projectRepo.GetScoped(ctx, orgID, projectID, &p); err != nil {
		return nil, err
	}

	t0 := time.Now()
	result, err := s.generator.Generate(ctx, artifactType, input)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "llm generation failed")
	}
	latency := time.Since(t0).Milliseconds()

	run := &models.LLMRun{
		ProjectID:    p.ID,
		WorkflowKey:  workflowKey,
		Model:        result.Meta.Model,
		InputTokens:  result.Meta.InputTokens,
		OutputTokens: result.Meta.OutputTokens,
		CostUSD:      result.Meta.CostUSD,
		LatencyMS:    &latency,
		CreatedByID:  userID,
	}
	if result.Meta.LatencyMS != nil {
		run.LatencyMS = result.Meta.LatencyMS
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal workflow input failed")
	}

	review := &models.ReviewItem{
		ProjectID:    p.ID,
		ArtifactType: artifactType,
		Status:       models.ReviewPending,
		InputJSON:    datatypes.JSON(inputJSON),
		OutputText:   result.OutputText,
		OutputJSON:   result.OutputJSON,
		CreatedByID:  userID,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}

	logger.L().Info("workflow run completed",
		zap.String("project_id", p.ID.String()),
		zap.String("workflow_key", workflowKey),
		zap.String("review_id", review.ID.String()),
		zap.Int64("latency_ms", *run.LatencyMS),
	)
	return &WorkflowResult{Run: run, Review: review}, nil
}
