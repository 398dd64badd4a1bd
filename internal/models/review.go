package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Review states. PENDING is the only non-terminal state.
const (
	ReviewPending  = "PENDING"
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

// ReviewItem is a piece of generated content awaiting human approval.
// Approval appends an artifact version and moves the item to APPROVED in the
// same transaction; rejection only stamps the reviewer. Terminal states are
// never mutated again.
type ReviewItem struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	ArtifactType string         `gorm:"type:varchar(32);not null" json:"artifact_type" validate:"required"`
	Status       string         `gorm:"type:varchar(16);index;not null;default:'PENDING'" json:"status" validate:"required,oneof=PENDING APPROVED REJECTED"`
	InputJSON    datatypes.JSON `gorm:"type:jsonb" json:"input_json"`
	OutputText   *string        `gorm:"type:text" json:"output_text,omitempty"`
	OutputJSON   datatypes.JSON `gorm:"type:jsonb" json:"output_json,omitempty"`
	CreatedByID  uuid.UUID      `gorm:"type:uuid;not null" json:"created_by_id"`
	ReviewedByID *uuid.UUID     `gorm:"type:uuid" json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time     `json:"reviewed_at,omitempty"`
	ReviewerNote *string        `gorm:"type:varchar(1000)" json:"reviewer_note,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
