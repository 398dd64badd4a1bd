package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/specforge/engine/internal/llm"
	"github.com/specforge/engine/internal/models"
	"github.com/specforge/engine/internal/repository"
	"github.com/specforge/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockProjectRepository struct {
	mock.Mock
}

func (m *mockProjectRepository) Create(ctx context.Context, obj *models.Project) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockProjectRepository) GetByID(ctx context.Context, id any, dest *models.Project) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.Project)
	}
	return args.Error(0)
}

func (m *mockProjectRepository) Update(ctx context.Context, obj *models.Project) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockProjectRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProjectRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Project, error) {
	args := m.Called(ctx, orgID)
	if v := args.Get(0); v != nil {
		return v.([]models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepository) GetScoped(ctx context.Context, orgID, projectID uuid.UUID, dest *models.Project) error {
	args := m.Called(ctx, orgID, projectID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.Project)
	}
	return args.Error(0)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, obj *models.ReviewItem) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id any, dest *models.ReviewItem) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.ReviewItem)
	}
	return args.Error(0)
}

func (m *mockReviewRepository) Update(ctx context.Context, obj *models.ReviewItem) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) GetScoped(ctx context.Context, orgID, reviewID uuid.UUID, dest *models.ReviewItem) error {
	args := m.Called(ctx, orgID, reviewID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.ReviewItem)
	}
	return args.Error(0)
}

func (m *mockReviewRepository) ListByProject(ctx context.Context, projectID uuid.UUID, status string) ([]models.ReviewItem, error) {
	args := m.Called(ctx, projectID, status)
	if v := args.Get(0); v != nil {
		return v.([]models.ReviewItem), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRunRepository struct {
	mock.Mock
}

func (m *mockRunRepository) Create(ctx context.Context, obj *models.LLMRun) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockRunRepository) GetByID(ctx context.Context, id any, dest *models.LLMRun) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.LLMRun)
	}
	return args.Error(0)
}

func (m *mockRunRepository) Update(ctx context.Context, obj *models.LLMRun) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockRunRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockExportRepository struct {
	mock.Mock
}

func (m *mockExportRepository) Create(ctx context.Context, obj *models.ExportFile) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockExportRepository) GetByID(ctx context.Context, id any, dest *models.ExportFile) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.ExportFile)
	}
	return args.Error(0)
}

func (m *mockExportRepository) Update(ctx context.Context, obj *models.ExportFile) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockExportRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockExportRepository) GetScoped(ctx context.Context, orgID, exportID uuid.UUID, dest *models.ExportFile) error {
	args := m.Called(ctx, orgID, exportID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.ExportFile)
	}
	return args.Error(0)
}

func (m *mockExportRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ExportFile, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.([]models.ExportFile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExportRepository) ClaimProcessing(ctx context.Context, exportID uuid.UUID) (bool, error) {
	args := m.Called(ctx, exportID)
	return args.Bool(0), args.Error(1)
}

func (m *mockExportRepository) MarkDone(ctx context.Context, exportID uuid.UUID, key string, publicURL *string) (bool, error) {
	args := m.Called(ctx, exportID, key, publicURL)
	return args.Bool(0), args.Error(1)
}

func (m *mockExportRepository) MarkFailed(ctx context.Context, exportID uuid.UUID, errText string) (bool, error) {
	args := m.Called(ctx, exportID, errText)
	return args.Bool(0), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, artifactType string, input llm.WorkflowInput) (*llm.Result, error) {
	args := m.Called(ctx, artifactType, input)
	if v := args.Get(0); v != nil {
		return v.(*llm.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *mockStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockStore) PublicURL(key string) (string, bool) {
	args := m.Called(key)
	return args.String(0), args.Bool(1)
}

var _ repository.BaseRepository[models.LLMRun] = (*mockRunRepository)(nil)
