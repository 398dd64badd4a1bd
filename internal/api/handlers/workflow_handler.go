package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/specforge/engine/internal/api/middleware"
	"github.com/specforge/engine/internal/api/types"
	"github.com/specforge/engine/internal/api/validators"
	"github.com/specforge/engine/internal/llm"
	"github.com/specforge/engine/internal/services"
)

type WorkflowHandler struct {
	workflows services.WorkflowService
}

func NewWorkflowHandler(workflows services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

// Run starts a generation workflow for a project. The produced output lands
// in the review queue rather than directly on the artifact.
func (h *WorkflowHandler) Run(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathUUID(chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	workflowKey := chi.URLParam(r, "workflowKey")

	var input llm.WorkflowInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validators.New().Struct(input); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	result, err := h.workflows.Run(ctx, middleware.GetOrgID(ctx), projectID, middleware.GetUserID(ctx), workflowKey, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: map[string]any{
		"run":    result.Run,
		"review": result.Review,
	}})
}
