package render

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/specforge/engine/internal/models"
	appErr "github.com/specforge/engine/pkg/errors"
)

// ScaffoldZipRenderer bundles every artifact that has approved content into a
// project scaffold archive. At least one artifact must have content.
type ScaffoldZipRenderer struct{}

// scaffoldEntries maps artifact types to their path inside the archive.
var scaffoldEntries = []struct {
	artifactType string
	path         string
}{
	{models.ArtifactPRD, "docs/prd.md"},
	{models.ArtifactUserStories, "docs/user_stories.md"},
	{models.ArtifactOpenAPI, "api/openapi.json"},
	{models.ArtifactDBSchema, "db/schema.json"},
	{models.ArtifactTaskBreakdown, "docs/tasks.md"},
}

func (r *ScaffoldZipRenderer) Render(ctx context.Context, state *ProjectState) (*File, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	written := 0
	var readme strings.Builder
	fmt.Fprintf(&readme, "# %s\n\nGenerated project scaffold.\n\n## Contents\n", state.Project.Name)

	for _, entry := range scaffoldEntries {
		latest := state.Latest(entry.artifactType)
		if latest == nil {
			continue
		}
		var content []byte
		switch {
		case latest.ContentText != nil && *latest.ContentText != "":
			content = []byte(*latest.ContentText)
		case len(latest.ContentJSON) > 0:
			content = latest.ContentJSON
		default:
			continue
		}
		w, err := zw.Create(entry.path)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "create archive entry failed")
		}
		if _, err := w.Write(content); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "write archive entry failed")
		}
		fmt.Fprintf(&readme, "- %s (v%d)\n", entry.path, latest.Version)
		written++
	}

	if written == 0 {
		_ = zw.Close()
		return nil, appErr.New(appErr.CodeInvalid, "project has no approved content to scaffold")
	}

	w, err := zw.Create("README.md")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create archive entry failed")
	}
	if _, err := w.Write([]byte(readme.String())); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "write archive entry failed")
	}

	if err := zw.Close(); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "close archive failed")
	}

	return &File{
		Filename:    "scaffold.zip",
		Bytes:       buf.Bytes(),
		ContentType: "application/zip",
	}, nil
}
