package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/specforge/engine/internal/models"
)

// mockGenerator returns canned output per artifact type. It exists so the
// review and export pipelines can be exercised end to end without a real
// provider.
type mockGenerator struct{}

func mockMeta() Meta {
	in, out := 123, 456
	lat := int64(150)
	cost := 0.0
	return Meta{
		Model:        "mock-llm",
		InputTokens:  &in,
		OutputTokens: &out,
		LatencyMS:    &lat,
		CostUSD:      &cost,
	}
}

func (g *mockGenerator) Generate(ctx context.Context, artifactType string, input WorkflowInput) (*Result, error) {
	switch artifactType {
	case models.ArtifactPRD:
		return textResult(g.prd(input)), nil
	case models.ArtifactUserStories:
		return textResult(g.userStories()), nil
	case models.ArtifactOpenAPI:
		return jsonResult(g.openAPI())
	case models.ArtifactDBSchema:
		return jsonResult(g.dbSchema())
	default:
		return textResult(g.taskBreakdown()), nil
	}
}

func textResult(s string) *Result {
	return &Result{OutputText: &s, Meta: mockMeta()}
}

func jsonResult(v any) (*Result, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal mock output: %w", err)
	}
	return &Result{OutputJSON: b, Meta: mockMeta()}, nil
}

func (g *mockGenerator) prd(input WorkflowInput) string {
	targetUsers := input.TargetUsers
	if targetUsers == "" {
		targetUsers = "General users"
	}
	constraints := input.Constraints
	if len(constraints) == 0 {
		constraints = []string{"Time: 2 weeks"}
	}
	var b strings.Builder
	b.WriteString("# PRD\n\n## Idea\n")
	b.WriteString(input.Idea)
	b.WriteString("\n\n## Target Users\n")
	b.WriteString(targetUsers)
	b.WriteString("\n\n## Goals\n- Clear problem statement\n- MVP scope\n- Success metrics\n\n## Non-goals\n- Anything outside MVP\n\n## Constraints\n")
	for _, c := range constraints {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

func (g *mockGenerator) userStories() string {
	return `# User Stories

1) As a user, I want to sign up/login so I can access the workspace.
   - AC: Valid email/password, JWT issued.

2) As a PM, I want to create a project so I can manage PRD/specs.
   - AC: Project created with default artifacts.

3) As a reviewer, I want to approve generated outputs so only verified specs go to versions.
   - AC: Approve creates a new artifact version.
`
}

func (g *mockGenerator) openAPI() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": "SpecForge API", "version": "1.0.0"},
		"paths": map[string]any{
			"/auth/login": map[string]any{
				"post": map[string]any{
					"summary":     "Login",
					"requestBody": map[string]any{"required": true},
					"responses":   map[string]any{"200": map[string]any{"description": "OK"}},
				},
			},
			"/projects": map[string]any{
				"get": map[string]any{
					"summary":   "List projects",
					"responses": map[string]any{"200": map[string]any{"description": "OK"}},
				},
				"post": map[string]any{
					"summary":   "Create project",
					"responses": map[string]any{"201": map[string]any{"description": "Created"}},
				},
			},
		},
	}
}

func (g *mockGenerator) dbSchema() map[string]any {
	return map[string]any{
		"tables": []map[string]any{
			{"name": "users", "fields": []string{"id", "email", "passwordHash", "createdAt"}},
			{"name": "orgs", "fields": []string{"id", "name", "slug", "createdAt"}},
			{"name": "projects", "fields": []string{"id", "orgId", "name", "createdAt"}},
		},
		"indexes": []map[string]any{
			{"table": "users", "fields": []string{"email"}, "unique": true},
		},
	}
}

func (g *mockGenerator) taskBreakdown() string {
	return `# Task Breakdown

## Backend
- Auth endpoints
- Org + RBAC
- Project + artifacts
- Review queue approve/reject

## Frontend
- Dashboard
- Editor
- Review queue UI

## DevOps
- Deploy API/Worker
- Deploy Web
`
}
