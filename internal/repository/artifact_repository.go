package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/specforge/engine/internal/models"
	appErr "github.com/specforge/engine/pkg/errors"
)

// VersionContent is the payload for an artifact version append.
// At least one of Text or JSON must be present.
type VersionContent struct {
	Text *string
	JSON datatypes.JSON
}

// Empty reports whether the content carries neither text nor JSON.
func (c VersionContent) Empty() bool {
	return (c.Text == nil || *c.Text == "") && len(c.JSON) == 0
}

type ArtifactRepository interface {
	BaseRepository[models.Artifact]
	GetScoped(ctx context.Context, orgID, artifactID uuid.UUID, dest *models.Artifact) error
	GetByProjectAndType(ctx context.Context, projectID uuid.UUID, artifactType string, dest *models.Artifact) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Artifact, error)
	ListVersions(ctx context.Context, artifactID uuid.UUID) ([]models.ArtifactVersion, error)
	LatestVersion(ctx context.Context, artifactID uuid.UUID, dest *models.ArtifactVersion) error

	// AppendVersion atomically inserts the next version for the artifact.
	// Version numbers per artifact are gap-free and strictly increasing from 1;
	// two concurrent appenders can never produce the same number.
	AppendVersion(ctx context.Context, artifactID, createdBy uuid.UUID, content VersionContent) (*models.ArtifactVersion, error)

	// AppendVersionTx is AppendVersion running inside the caller's transaction,
	// so a caller can commit the append together with its own writes.
	AppendVersionTx(tx *gorm.DB, artifactID, createdBy uuid.UUID, content VersionContent) (*models.ArtifactVersion, error)
}

type artifactRepository struct {
	BaseRepository[models.Artifact]
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) ArtifactRepository {
	return &artifactRepository{BaseRepository: NewBaseRepository[models.Artifact](db), db: db}
}

func (r *artifactRepository) GetScoped(ctx context.Context, orgID, artifactID uuid.UUID, dest *models.Artifact) error {
	err := r.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = artifacts.project_id").
		Where("artifacts.id = ? AND projects.org_id = ?", artifactID, orgID).
		First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "artifact not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get artifact failed")
	}
	return nil
}

func (r *artifactRepository) GetByProjectAndType(ctx context.Context, projectID uuid.UUID, artifactType string, dest *models.Artifact) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND type = ?", projectID, artifactType).
		First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "artifact not found for project and type")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get artifact by project and type failed")
	}
	return nil
}

func (r *artifactRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Artifact, error) {
	var out []models.Artifact
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("type ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list artifacts failed")
	}
	return out, nil
}

func (r *artifactRepository) ListVersions(ctx context.Context, artifactID uuid.UUID) ([]models.ArtifactVersion, error) {
	var out []models.ArtifactVersion
	err := r.db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Order("version DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list versions failed")
	}
	return out, nil
}

func (r *artifactRepository) LatestVersion(ctx context.Context, artifactID uuid.UUID, dest *models.ArtifactVersion) error {
	err := r.db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Order("version DESC").
		First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "artifact has no versions")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get latest version failed")
	}
	return nil
}

func (r *artifactRepository) AppendVersion(ctx context.Context, artifactID, createdBy uuid.UUID, content VersionContent) (*models.ArtifactVersion, error) {
	var created *models.ArtifactVersion
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := r.AppendVersionTx(tx, artifactID, createdBy, content)
		if err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *artifactRepository) AppendVersionTx(tx *gorm.DB, artifactID, createdBy uuid.UUID, content VersionContent) (*models.ArtifactVersion, error) {
	if content.Empty() {
		return nil, appErr.New(appErr.CodeInvalid, "provide content_text or content_json")
	}

	// Lock the artifact row so concurrent appends to the same artifact
	// serialize on the version sequence.
	var artifact models.Artifact
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&artifact, "id = ?", artifactID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.New(appErr.CodeNotFound, "artifact not found")
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "lock artifact failed")
	}

	// The unique index on (artifact_id, version) is the backstop against a
	// racing append that slipped past the row lock (e.g. a writer from a
	// store without it). The savepoint keeps the surrounding transaction
	// usable after a rejected insert so one retry with a fresh max can
	// resolve the conflict.
	if err := tx.SavePoint("append_version").Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "append version failed")
	}
	v, err := r.insertNextVersion(tx, artifactID, createdBy, content)
	if err == nil {
		return v, nil
	}
	if isUniqueViolation(err) {
		if err := tx.RollbackTo("append_version").Error; err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "append version failed")
		}
		v, err = r.insertNextVersion(tx, artifactID, createdBy, content)
		if err == nil {
			return v, nil
		}
		if isUniqueViolation(err) {
			return nil, appErr.Wrap(err, appErr.CodeConflict, "concurrent version append")
		}
	}
	return nil, appErr.Wrap(err, appErr.CodeInternal, "append version failed")
}

func (r *artifactRepository) insertNextVersion(tx *gorm.DB, artifactID, createdBy uuid.UUID, content VersionContent) (*models.ArtifactVersion, error) {
	var maxVersion int
	err := tx.Model(&models.ArtifactVersion{}).
		Where("artifact_id = ?", artifactID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return nil, err
	}

	v := &models.ArtifactVersion{
		ArtifactID:  artifactID,
		Version:     maxVersion + 1,
		ContentText: content.Text,
		ContentJSON: content.JSON,
		CreatedByID: createdBy,
	}
	if err := tx.Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
