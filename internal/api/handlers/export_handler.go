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

type ExportHandler struct {
	exports services.ExportService
}

func NewExportHandler(exports services.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func (h *ExportHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathUUID(chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Type string `json:"type" validate:"required,oneof=PRD_MD OPENAPI_JSON DB_SCHEMA_JSON SCAFFOLD_ZIP"`
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
	export, err := h.exports.CreateExport(ctx, middleware.GetOrgID(ctx), projectID, middleware.GetUserID(ctx), req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: export})
}

func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathUUID(chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.exports.ListExports(r.Context(), middleware.GetOrgID(r.Context()), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items})
}

// DownloadURL returns a browser-usable URL for a finished export. Exports
// that are still queued or processing yield a conflict.
func (h *ExportHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	exportID, err := pathUUID(chi.URLParam(r, "exportID"))
	if err != nil {
		writeError(w, err)
		return
	}
	url, err := h.exports.DownloadURL(r.Context(), middleware.GetOrgID(r.Context()), exportID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"url": url}})
}

func (h *ExportHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	exportID, err := pathUUID(chi.URLParam(r, "exportID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.exports.RequeueExport(r.Context(), middleware.GetOrgID(r.Context()), exportID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: map[string]string{"status": "requeued"}})
}
