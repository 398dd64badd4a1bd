package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/specforge/engine/internal/api/middleware"
	"github.com/specforge/engine/internal/api/types"
	"github.com/specforge/engine/internal/api/validators"
	"github.com/specforge/engine/internal/services"
)

type ProjectHandler struct {
	projects services.ProjectService
}

func NewProjectHandler(projects services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.projects.ListProjects(r.Context(), middleware.GetOrgID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items})
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required,max=160"`
		Description string `json:"description" validate:"max=2000"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	project, artifacts, err := h.projects.CreateProject(ctx, middleware.GetOrgID(ctx), middleware.GetUserID(ctx), &services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: map[string]any{
		"project":   project,
		"artifacts": artifacts,
	}})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	project, artifacts, err := h.projects.GetProject(r.Context(), middleware.GetOrgID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]any{
		"project":   project,
		"artifacts": artifacts,
	}})
}
