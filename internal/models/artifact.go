package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Artifact types. Each project owns at most one artifact per type.
const (
	ArtifactPRD           = "PRD"
	ArtifactUserStories   = "USER_STORIES"
	ArtifactOpenAPI       = "OPENAPI"
	ArtifactDBSchema      = "DB_SCHEMA"
	ArtifactTaskBreakdown = "TASK_BREAKDOWN"
)

// ArtifactTypes lists all known artifact types in seeding order.
var ArtifactTypes = []string{
	ArtifactPRD,
	ArtifactUserStories,
	ArtifactOpenAPI,
	ArtifactDBSchema,
	ArtifactTaskBreakdown,
}

// ArtifactTitles maps each type to the title seeded at project creation.
var ArtifactTitles = map[string]string{
	ArtifactPRD:           "Product Requirement Document",
	ArtifactUserStories:   "User Stories",
	ArtifactOpenAPI:       "API Specification (OpenAPI)",
	ArtifactDBSchema:      "Database Schema",
	ArtifactTaskBreakdown: "Task Breakdown",
}

// Artifact is a named generated-document slot within a project, one per type.
type Artifact struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_artifacts_project_type,unique" json:"project_id" validate:"required"`
	Type      string    `gorm:"type:varchar(32);not null;index:idx_artifacts_project_type,unique" json:"type" validate:"required,oneof=PRD USER_STORIES OPENAPI DB_SCHEMA TASK_BREAKDOWN"`
	Title     string    `gorm:"not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArtifactVersion is an immutable, sequentially numbered snapshot of an
// artifact's content. Rows are only ever inserted: version numbers start at 1
// and increase by exactly 1, enforced by the append protocol plus the unique
// index on (artifact_id, version). No updates or deletes.
type ArtifactVersion struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ArtifactID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_artifact_versions_artifact_version,unique" json:"artifact_id" validate:"required"`
	Version     int            `gorm:"not null;index:idx_artifact_versions_artifact_version,unique" json:"version"`
	ContentText *string        `gorm:"type:text" json:"content_text,omitempty"`
	ContentJSON datatypes.JSON `gorm:"type:jsonb" json:"content_json,omitempty"`
	CreatedByID uuid.UUID      `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
}
