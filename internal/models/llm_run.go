package models

import (
	"time"

	"github.com/google/uuid"
)

// LLMRun records usage metadata for one generation workflow invocation.
type LLMRun struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID    uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	WorkflowKey  string    `gorm:"type:varchar(64);not null" json:"workflow_key" validate:"required"`
	Model        string    `gorm:"type:varchar(64)" json:"model"`
	InputTokens  *int      `json:"input_tokens,omitempty"`
	OutputTokens *int      `json:"output_tokens,omitempty"`
	CostUSD      *float64  `json:"cost_usd,omitempty"`
	LatencyMS    *int64    `json:"latency_ms,omitempty"`
	CreatedByID  uuid.UUID `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}
