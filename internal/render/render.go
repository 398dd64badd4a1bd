// Package render turns current project state into downloadable export files.
// One renderer per export type, looked up through a Registry.
package render

import (
	"context"
	"fmt"

	"github.com/specforge/engine/internal/models"
	appErr "github.com/specforge/engine/pkg/errors"
)

// File is the rendered output of one export.
type File struct {
	Filename    string
	Bytes       []byte
	ContentType string
}

// ArtifactState is one artifact plus its latest version, if any.
type ArtifactState struct {
	Artifact models.Artifact
	Latest   *models.ArtifactVersion
}

// ProjectState is a snapshot of a project's artifacts at render time.
type ProjectState struct {
	Project   models.Project
	Artifacts []ArtifactState
}

// Latest returns the newest version of the given artifact type, or nil when
// the artifact has no versions yet.
func (s *ProjectState) Latest(artifactType string) *models.ArtifactVersion {
	for i := range s.Artifacts {
		if s.Artifacts[i].Artifact.Type == artifactType {
			return s.Artifacts[i].Latest
		}
	}
	return nil
}

// Renderer produces the export file for one export type.
type Renderer interface {
	Render(ctx context.Context, state *ProjectState) (*File, error)
}

// Registry maps export types to renderers.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry returns a registry with all built-in renderers registered.
func NewRegistry() *Registry {
	r := &Registry{renderers: map[string]Renderer{}}
	r.Register(models.ExportPRDMarkdown, &PRDMarkdownRenderer{})
	r.Register(models.ExportOpenAPIJSON, &JSONArtifactRenderer{ArtifactType: models.ArtifactOpenAPI, Filename: "openapi.json"})
	r.Register(models.ExportDBSchemaJSON, &JSONArtifactRenderer{ArtifactType: models.ArtifactDBSchema, Filename: "db_schema.json"})
	r.Register(models.ExportScaffoldZip, &ScaffoldZipRenderer{})
	return r
}

// Register adds or replaces the renderer for an export type.
func (r *Registry) Register(exportType string, renderer Renderer) {
	r.renderers[exportType] = renderer
}

// Render dispatches to the renderer registered for the export type.
func (r *Registry) Render(ctx context.Context, exportType string, state *ProjectState) (*File, error) {
	renderer, ok := r.renderers[exportType]
	if !ok {
		return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("no renderer for export type %q", exportType))
	}
	return renderer.Render(ctx, state)
}

func missingContent(artifactType string) error {
	return appErr.New(appErr.CodeInvalid, fmt.Sprintf("artifact %s has no approved content to export", artifactType))
}
