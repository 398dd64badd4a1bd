package types

import (
	"net/http"

	appErr "github.com/specforge/engine/pkg/errors"
)

// FromAppError maps an application error to its wire representation and
// the HTTP status the handler should write.
func FromAppError(err *appErr.AppError) (int, *APIError) {
	status := http.StatusInternalServerError
	switch err.Code {
	case appErr.CodeInvalid:
		status = http.StatusBadRequest
	case appErr.CodeNotFound:
		status = http.StatusNotFound
	case appErr.CodeConflict:
		status = http.StatusConflict
	case appErr.CodeUnauthorized:
		status = http.StatusUnauthorized
	case appErr.CodeForbidden:
		status = http.StatusForbidden
	case appErr.CodeUnavailable:
		status = http.StatusServiceUnavailable
	case appErr.CodeInternal, appErr.CodeUnknown:
		status = http.StatusInternalServerError
	}

	apiErr := &APIError{
		Code:    string(err.Code),
		Message: err.Message,
	}
	if err.Err != nil && status < http.StatusInternalServerError {
		apiErr.Details = err.Err.Error()
	}
	return status, apiErr
}
