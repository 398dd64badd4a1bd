package render

import (
	"bytes"
	"context"
	"encoding/json"

	appErr "github.com/specforge/engine/pkg/errors"
)

// JSONArtifactRenderer exports the latest structured content of one artifact
// type as a pretty-printed JSON file. Used for OPENAPI_JSON and
// DB_SCHEMA_JSON exports.
type JSONArtifactRenderer struct {
	ArtifactType string
	Filename     string
}

func (r *JSONArtifactRenderer) Render(ctx context.Context, state *ProjectState) (*File, error) {
	latest := state.Latest(r.ArtifactType)
	if latest == nil || len(latest.ContentJSON) == 0 {
		return nil, missingContent(r.ArtifactType)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, latest.ContentJSON, "", "  "); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "stored content is not valid json")
	}
	out.WriteByte('\n')

	return &File{
		Filename:    r.Filename,
		Bytes:       out.Bytes(),
		ContentType: "application/json",
	}, nil
}
