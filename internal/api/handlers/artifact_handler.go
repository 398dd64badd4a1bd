package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/datatypes"

	"github.com/specforge/engine/internal/api/middleware"
	"github.com/specforge/engine/internal/api/types"
	"github.com/specforge/engine/internal/services"
)

type ArtifactHandler struct {
	artifacts services.ArtifactService
}

func NewArtifactHandler(artifacts services.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

func (h *ArtifactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(chi.URLParam(r, "artifactID"))
	if err != nil {
		writeError(w, err)
		return
	}
	artifact, err := h.artifacts.GetArtifact(r.Context(), middleware.GetOrgID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: artifact})
}

func (h *ArtifactHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(chi.URLParam(r, "artifactID"))
	if err != nil {
		writeError(w, err)
		return
	}
	versions, err := h.artifacts.ListVersions(r.Context(), middleware.GetOrgID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: versions})
}

func (h *ArtifactHandler) AppendVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(chi.URLParam(r, "artifactID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		ContentText *string         `json:"content_text"`
		ContentJSON json.RawMessage `json:"content_json"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ctx := r.Context()
	version, err := h.artifacts.AppendVersion(ctx, middleware.GetOrgID(ctx), id, middleware.GetUserID(ctx), &services.AppendVersionInput{
		ContentText: req.ContentText,
		ContentJSON: datatypes.JSON(req.ContentJSON),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: version})
}
