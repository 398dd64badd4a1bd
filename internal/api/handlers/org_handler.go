package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/specforge/engine/internal/api/middleware"
	"github.com/specforge/engine/internal/api/types"
	"github.com/specforge/engine/internal/api/validators"
	"github.com/specforge/engine/internal/services"
)

type OrgHandler struct {
	orgs services.OrgService
}

func NewOrgHandler(orgs services.OrgService) *OrgHandler {
	return &OrgHandler{orgs: orgs}
}

func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,max=120"`
		Slug string `json:"slug" validate:"required,lowercase,min=3,max=60"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	org, err := h.orgs.CreateOrg(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: org})
}

func (h *OrgHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	items, err := h.orgs.ListMine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items})
}
