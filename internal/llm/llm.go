// Package llm abstracts the content-generation collaborator. The engine only
// consumes its output as review candidate content plus usage metadata.
package llm

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/specforge/engine/internal/models"
)

// Workflow keys accepted by the generation endpoint.
const (
	WorkflowGeneratePRD           = "GENERATE_PRD"
	WorkflowGenerateUserStories   = "GENERATE_USER_STORIES"
	WorkflowGenerateOpenAPI       = "GENERATE_OPENAPI"
	WorkflowGenerateDBSchema      = "GENERATE_DB_SCHEMA"
	WorkflowGenerateTaskBreakdown = "GENERATE_TASK_BREAKDOWN"
)

// WorkflowToArtifact maps a workflow key to the artifact type it produces.
var WorkflowToArtifact = map[string]string{
	WorkflowGeneratePRD:           models.ArtifactPRD,
	WorkflowGenerateUserStories:   models.ArtifactUserStories,
	WorkflowGenerateOpenAPI:       models.ArtifactOpenAPI,
	WorkflowGenerateDBSchema:      models.ArtifactDBSchema,
	WorkflowGenerateTaskBreakdown: models.ArtifactTaskBreakdown,
}

// WorkflowInput is the user-supplied brief for a generation workflow.
type WorkflowInput struct {
	Idea        string   `json:"idea" validate:"required,min=10,max=5000"`
	TargetUsers string   `json:"target_users,omitempty" validate:"max=300"`
	Constraints []string `json:"constraints,omitempty" validate:"dive,max=200"`
	TechStack   []string `json:"tech_stack,omitempty" validate:"dive,max=100"`
	Notes       string   `json:"notes,omitempty" validate:"max=2000"`
}

// Meta carries usage metadata reported by a provider.
type Meta struct {
	Model        string
	InputTokens  *int
	OutputTokens *int
	LatencyMS    *int64
	CostUSD      *float64
}

// Result is the provider output: free text and/or structured JSON.
type Result struct {
	OutputText *string
	OutputJSON datatypes.JSON
	Meta       Meta
}

// Generator produces candidate content for one artifact type.
type Generator interface {
	Generate(ctx context.Context, artifactType string, input WorkflowInput) (*Result, error)
}

// New returns the generator for the configured provider. Unknown providers
// degrade to a placeholder result instead of failing the API.
func New(provider string) Generator {
	switch provider {
	case "mock":
		return &mockGenerator{}
	default:
		return &unimplementedGenerator{provider: provider}
	}
}

type unimplementedGenerator struct {
	provider string
}

func (g *unimplementedGenerator) Generate(ctx context.Context, artifactType string, input WorkflowInput) (*Result, error) {
	text := fmt.Sprintf("LLM provider %q not implemented yet. Switch LLM_PROVIDER=mock for now.", g.provider)
	return &Result{OutputText: &text, Meta: Meta{Model: g.provider}}, nil
}
