package models

import (
	"time"

	"github.com/google/uuid"
)

// Export file formats.
const (
	ExportPRDMarkdown  = "PRD_MD"
	ExportOpenAPIJSON  = "OPENAPI_JSON"
	ExportDBSchemaJSON = "DB_SCHEMA_JSON"
	ExportScaffoldZip  = "SCAFFOLD_ZIP"
)

// ExportTypes lists all known export formats.
var ExportTypes = []string{
	ExportPRDMarkdown,
	ExportOpenAPIJSON,
	ExportDBSchemaJSON,
	ExportScaffoldZip,
}

// Export statuses. Transitions are forward-only:
// QUEUED -> PROCESSING -> DONE | FAILED.
const (
	ExportQueued     = "QUEUED"
	ExportProcessing = "PROCESSING"
	ExportDone       = "DONE"
	ExportFailed     = "FAILED"
)

// ExportFile records one request to render and store a downloadable file.
// The worker owns all status transitions after creation. R2Key and PublicURL
// are set if and only if the status is DONE. Rows are kept as an audit trail.
type ExportFile struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	Type          string     `gorm:"type:varchar(32);not null" json:"type" validate:"required,oneof=PRD_MD OPENAPI_JSON DB_SCHEMA_JSON SCAFFOLD_ZIP"`
	Status        string     `gorm:"type:varchar(16);index;not null;default:'QUEUED'" json:"status" validate:"required,oneof=QUEUED PROCESSING DONE FAILED"`
	R2Key         *string    `json:"r2_key,omitempty"`
	PublicURL     *string    `json:"public_url,omitempty"`
	Error         *string    `gorm:"type:text" json:"error,omitempty"`
	RequestedByID uuid.UUID  `gorm:"type:uuid;not null" json:"requested_by_id"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
