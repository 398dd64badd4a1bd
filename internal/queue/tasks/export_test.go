package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/specforge/engine/internal/models"
	"github.com/specforge/engine/internal/render"
	"github.com/specforge/engine/internal/repository"
	"github.com/specforge/engine/internal/services"
	appErr "github.com/specforge/engine/pkg/errors"
	"github.com/specforge/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

// Mock implementations

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
		src := args.Get(1).(*models.ExportFile)
		*dest = *src
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
		src := args.Get(1).(*models.ExportFile)
		*dest = *src
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
		src := args.Get(1).(*models.Project)
		*dest = *src
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
		src := args.Get(1).(*models.Project)
		*dest = *src
	}
	return args.Error(0)
}

type mockArtifactRepository struct {
	mock.Mock
}

func (m *mockArtifactRepository) Create(ctx context.Context, obj *models.Artifact) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockArtifactRepository) GetByID(ctx context.Context, id any, dest *models.Artifact) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Artifact)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockArtifactRepository) Update(ctx context.Context, obj *models.Artifact) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockArtifactRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockArtifactRepository) GetScoped(ctx context.Context, orgID, artifactID uuid.UUID, dest *models.Artifact) error {
	args := m.Called(ctx, orgID, artifactID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Artifact)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockArtifactRepository) GetByProjectAndType(ctx context.Context, projectID uuid.UUID, artifactType string, dest *models.Artifact) error {
	args := m.Called(ctx, projectID, artifactType, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Artifact)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockArtifactRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Artifact, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.([]models.Artifact), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArtifactRepository) ListVersions(ctx context.Context, artifactID uuid.UUID) ([]models.ArtifactVersion, error) {
	args := m.Called(ctx, artifactID)
	if v := args.Get(0); v != nil {
		return v.([]models.ArtifactVersion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArtifactRepository) LatestVersion(ctx context.Context, artifactID uuid.UUID, dest *models.ArtifactVersion) error {
	args := m.Called(ctx, artifactID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.ArtifactVersion)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockArtifactRepository) AppendVersion(ctx context.Context, artifactID, createdBy uuid.UUID, content repository.VersionContent) (*models.ArtifactVersion, error) {
	args := m.Called(ctx, artifactID, createdBy, content)
	if v := args.Get(0); v != nil {
		return v.(*models.ArtifactVersion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArtifactRepository) AppendVersionTx(tx *gorm.DB, artifactID, createdBy uuid.UUID, content repository.VersionContent) (*models.ArtifactVersion, error) {
	args := m.Called(tx, artifactID, createdBy, content)
	if v := args.Get(0); v != nil {
		return v.(*models.ArtifactVersion), args.Error(1)
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

func newRenderTask(t *testing.T, exportID uuid.UUID) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(services.ExportPayload{ExportID: exportID.String()})
	require.NoError(t, err)
	return asynq.NewTask(services.TypeExportRender, payload)
}

func TestExportTaskHandler_HandleRender(t *testing.T) {
	exportID := uuid.New()
	projectID := uuid.New()
	artifactID := uuid.New()
	userID := uuid.New()

	prdText := "# My Product\n\nSome requirements."

	newHandler := func() (*ExportTaskHandler, *mockExportRepository, *mockProjectRepository, *mockArtifactRepository, *mockStore) {
		exportRepo := &mockExportRepository{}
		projectRepo := &mockProjectRepository{}
		artifactRepo := &mockArtifactRepository{}
		store := &mockStore{}
		h := NewExportTaskHandler(exportRepo, projectRepo, artifactRepo, render.NewRegistry(), store)
		return h, exportRepo, projectRepo, artifactRepo, store
	}

	t.Run("successful render and upload", func(t *testing.T) {
		h, exportRepo, projectRepo, artifactRepo, store := newHandler()

		exp := &models.ExportFile{
			ID:            exportID,
			ProjectID:     projectID,
			Type:          models.ExportPRDMarkdown,
			Status:        models.ExportQueued,
			RequestedByID: userID,
		}
		exportRepo.On("GetByID", mock.Anything, exportID, &models.ExportFile{}).Return(nil, exp).Once()
		exportRepo.On("ClaimProcessing", mock.Anything, exportID).Return(true, nil).Once()

		project := &models.Project{ID: projectID, Name: "My Product"}
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).Return(nil, project).Once()

		artifacts := []models.Artifact{{
			ID:        artifactID,
			ProjectID: projectID,
			Type:      models.ArtifactPRD,
			Title:     models.ArtifactTitles[models.ArtifactPRD],
		}}
		artifactRepo.On("ListByProject", mock.Anything, projectID).Return(artifacts, nil).Once()

		version := &models.ArtifactVersion{
			ID:          uuid.New(),
			ArtifactID:  artifactID,
			Version:     3,
			ContentText: &prdText,
		}
		artifactRepo.On("LatestVersion", mock.Anything, artifactID, &models.ArtifactVersion{}).Return(nil, version).Once()

		wantKey := "exports/" + exportID.String() + "/prd.md"
		store.On("Upload", mock.Anything, wantKey, mock.MatchedBy(func(b []byte) bool {
			return len(b) > 0
		}), "text/markdown").Return(nil).Once()
		publicURL := "https://cdn.example.com/" + wantKey
		store.On("PublicURL", wantKey).Return(publicURL, true).Once()

		exportRepo.On("MarkDone", mock.Anything, exportID, wantKey, &publicURL).Return(true, nil).Once()

		err := h.HandleRender(context.Background(), newRenderTask(t, exportID))
		require.NoError(t, err)

		mock.AssertExpectationsForObjects(t, exportRepo, projectRepo, artifactRepo, store)
	})

	t.Run("done export short-circuits", func(t *testing.T) {
		h, exportRepo, projectRepo, artifactRepo, store := newHandler()

		key := "exports/x/prd.md"
		exp := &models.ExportFile{
			ID:        exportID,
			ProjectID: projectID,
			Type:      models.ExportPRDMarkdown,
			Status:    models.ExportDone,
			R2Key:     &key,
		}
		exportRepo.On("GetByID", mock.Anything, exportID, &models.ExportFile{}).Return(nil, exp).Once()

		err := h.HandleRender(context.Background(), newRenderTask(t, exportID))
		require.NoError(t, err)

		// No claim, no render, no upload on a finished export.
		exportRepo.AssertNotCalled(t, "ClaimProcessing", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mock.AssertExpectationsForObjects(t, exportRepo, projectRepo, artifactRepo)
	})

	t.Run("lost claim race is a no-op", func(t *testing.T) {
		h, exportRepo, _, _, store := newHandler()

		exp := &models.ExportFile{
			ID:        exportID,
			ProjectID: projectID,
			Type:      models.ExportPRDMarkdown,
			Status:    models.ExportQueued,
		}
		exportRepo.On("GetByID", mock.Anything, exportID, &models.ExportFile{}).Return(nil, exp).Once()
		exportRepo.On("ClaimProcessing", mock.Anything, exportID).Return(false, nil).Once()

		err := h.HandleRender(context.Background(), newRenderTask(t, exportID))
		require.NoError(t, err)

		store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		exportRepo.AssertExpectations(t)
	})

	t.Run("render failure marks FAILED and surfaces the error", func(t *testing.T) {
		h, exportRepo, projectRepo, artifactRepo, store := newHandler()

		exp := &models.ExportFile{
			ID:        exportID,
			ProjectID: projectID,
			Type:      models.ExportPRDMarkdown,
			Status:    models.ExportQueued,
		}
		exportRepo.On("GetByID", mock.Anything, exportID, &models.ExportFile{}).Return(nil, exp).Once()
		exportRepo.On("ClaimProcessing", mock.Anything, exportID).Return(true, nil).Once()

		project := &models.Project{ID: projectID, Name: "My Product"}
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).Return(nil, project).Once()

		// PRD artifact exists but has no versions: nothing to render.
		artifacts := []models.Artifact{{ID: artifactID, ProjectID: projectID, Type: models.ArtifactPRD}}
		artifactRepo.On("ListByProject", mock.Anything, projectID).Return(artifacts, nil).Once()
		artifactRepo.On("LatestVersion", mock.Anything, artifactID, &models.ArtifactVersion{}).
			Return(appErr.New(appErr.CodeNotFound, "no versions"), nil).Once()

		exportRepo.On("MarkFailed", mock.Anything, exportID, mock.MatchedBy(func(s string) bool {
			return s != ""
		})).Return(true, nil).Once()

		err := h.HandleRender(context.Background(), newRenderTask(t, exportID))
		require.Error(t, err)
		require.False(t, errors.Is(err, asynq.SkipRetry), "render failures must stay retryable")

		store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mock.AssertExpectationsForObjects(t, exportRepo, projectRepo, artifactRepo)
	})

	t.Run("upload failure marks FAILED and surfaces the error", func(t *testing.T) {
		h, exportRepo, projectRepo, artifactRepo, store := newHandler()

		exp := &models.ExportFile{
			ID:        exportID,
			ProjectID: projectID,
			Type:      models.ExportPRDMarkdown,
			Status:    models.ExportFailed,
		}
		exportRepo.On("GetByID", mock.Anything, exportID, &models.ExportFile{}).Return(nil, exp).Once()
		// FAILED rows are claimable again on queue-driven retries.
		exportRepo.On("ClaimProcessing", mock.Anything, exportID).Return(true, nil).Once()

		project := &models.Project{ID: projectID, Name: "My Product"}
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).Return(nil, project).Once()

		artifacts := []models.Artifact{{ID: artifactID, ProjectID: projectID, Type: models.ArtifactPRD}}
		artifactRepo.On("ListByProject", mock.Anything, projectID).Return(artifacts, nil).Once()
		version := &models.ArtifactVersion{ID: uuid.New(), ArtifactID: artifactID, Version: 1, ContentText: &prdText}
		artifactRepo.On("LatestVersion", mock.Anything, artifactID, &models.ArtifactVersion{}).Return(nil, version).Once()

		store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(appErr.New(appErr.CodeUnavailable, "bucket unreachable")).Once()

		exportRepo.On("MarkFailed", mock.Anything, exportID, mock.MatchedBy(func(s string) bool {
			return s != ""
		})).Return(true, nil).Once()

		err := h.HandleRender(context.Background(), newRenderTask(t, exportID))
		require.Error(t, err)

		exportRepo.AssertNotCalled(t, "MarkDone", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mock.AssertExpectationsForObjects(t, exportRepo, projectRepo, artifactRepo, store)
	})

	t.Run("concurrent finalize wins", func(t *testing.T) {
		h, exportRepo, projectRepo, artifactRepo, store := newHandler()

		exp := &models.ExportFile{
			ID:        exportID,
			ProjectID: projectID,
			Type:      models.ExportPRDMarkdown,
			Status:    models.ExportQueued,
		}
		exportRepo.On("GetByID", mock.Anything, exportID, &models.ExportFile{}).Return(nil, exp).Once()
		exportRepo.On("ClaimProcessing", mock.Anything, exportID).Return(true, nil).Once()

		project := &models.Project{ID: projectID, Name: "My Product"}
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).Return(nil, project).Once()
		artifacts := []models.Artifact{{ID: artifactID, ProjectID: projectID, Type: models.ArtifactPRD}}
		artifactRepo.On("ListByProject", mock.Anything, projectID).Return(artifacts, nil).Once()
		version := &models.ArtifactVersion{ID: uuid.New(), ArtifactID: artifactID, Version: 1, ContentText: &prdText}
		artifactRepo.On("LatestVersion", mock.Anything, artifactID, &models.ArtifactVersion{}).Return(nil, version).Once()

		store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		store.On("PublicURL", mock.Anything).Return("", false).Once()

		exportRepo.On("MarkDone", mock.Anything, exportID, mock.Anything, (*string)(nil)).Return(false, nil).Once()

		err := h.HandleRender(context.Background(), newRenderTask(t, exportID))
		require.NoError(t, err)

		mock.AssertExpectationsForObjects(t, exportRepo, projectRepo, artifactRepo, store)
	})

	t.Run("unparseable payload is not retried", func(t *testing.T) {
		h, _, _, _, _ := newHandler()

		task := asynq.NewTask(services.TypeExportRender, []byte("{not json"))
		err := h.HandleRender(context.Background(), task)
		require.Error(t, err)
		require.True(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("missing export row is not retried", func(t *testing.T) {
		h, exportRepo, _, _, _ := newHandler()

		exportRepo.On("GetByID", mock.Anything, exportID, &models.ExportFile{}).
			Return(appErr.New(appErr.CodeNotFound, "export not found"), nil).Once()

		err := h.HandleRender(context.Background(), newRenderTask(t, exportID))
		require.Error(t, err)
		require.True(t, errors.Is(err, asynq.SkipRetry))
		exportRepo.AssertExpectations(t)
	})
}
