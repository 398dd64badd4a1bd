package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/specforge/engine/internal/models"
)

// PRDMarkdownRenderer renders the latest PRD version as a markdown document.
type PRDMarkdownRenderer struct{}

func (r *PRDMarkdownRenderer) Render(ctx context.Context, state *ProjectState) (*File, error) {
	latest := state.Latest(models.ArtifactPRD)
	if latest == nil || latest.ContentText == nil || *latest.ContentText == "" {
		return nil, missingContent(models.ArtifactPRD)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<!-- %s · PRD v%d -->\n\n", state.Project.Name, latest.Version)
	b.WriteString(*latest.ContentText)
	if !strings.HasSuffix(*latest.ContentText, "\n") {
		b.WriteString("\n")
	}

	return &File{
		Filename:    "prd.md",
		Bytes:       []byte(b.String()),
		ContentType: "text/markdown",
	}, nil
}
