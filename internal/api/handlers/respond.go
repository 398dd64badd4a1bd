package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/specforge/engine/internal/api/types"
	appErr "github.com/specforge/engine/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var ae *appErr.AppError
	if !errors.As(err, &ae) {
		ae = appErr.Wrap(err, appErr.CodeInternal, "internal error")
	}
	status, apiErr := types.FromAppError(ae)
	writeJSON(w, status, types.APIResponse{Success: false, Error: apiErr})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: string(appErr.CodeInvalid), Message: msg}})
}

// pathUUID parses a route parameter that must be a UUID.
func pathUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, appErr.New(appErr.CodeInvalid, "invalid id in path")
	}
	return id, nil
}
