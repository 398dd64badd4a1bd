package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/datatypes"

	"github.com/specforge/engine/internal/api/middleware"
	"github.com/specforge/engine/internal/api/types"
	"github.com/specforge/engine/internal/api/validators"
	"github.com/specforge/engine/internal/services"
)

type ReviewHandler struct {
	reviews services.ReviewService
}

func NewReviewHandler(reviews services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathUUID(chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	status := r.URL.Query().Get("status")
	items, err := h.reviews.List(r.Context(), middleware.GetOrgID(r.Context()), projectID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items})
}

func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	reviewID, err := pathUUID(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		OutputText *string         `json:"output_text"`
		OutputJSON json.RawMessage `json:"output_json"`
		Note       *string         `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ctx := r.Context()
	result, err := h.reviews.Approve(ctx, middleware.GetOrgID(ctx), reviewID, middleware.GetUserID(ctx), &services.ApproveInput{
		OutputText: req.OutputText,
		OutputJSON: datatypes.JSON(req.OutputJSON),
		Note:       req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]any{
		"review":  result.Review,
		"version": result.Version,
	}})
}

func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	reviewID, err := pathUUID(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Note string `json:"note" validate:"required,max=2000"`
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
	review, err := h.reviews.Reject(ctx, middleware.GetOrgID(ctx), reviewID, middleware.GetUserID(ctx), req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: review})
}
