package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/specforge/engine/internal/services"
	appErr "github.com/specforge/engine/pkg/errors"
)

type orgKeyType string

const (
	OrgIDKey   orgKeyType = "org_id"
	OrgRoleKey orgKeyType = "org_role"
)

// OrgScope resolves the X-Org-Slug header to an organization the caller
// belongs to and adds the org id and role to context. Requests without a
// valid membership are rejected before any handler runs.
func OrgScope(orgs services.OrgService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := r.Header.Get("X-Org-Slug")
			if slug == "" {
				http.Error(w, "missing X-Org-Slug header", http.StatusBadRequest)
				return
			}
			userID := GetUserID(r.Context())
			org, member, err := orgs.ResolveMember(r.Context(), slug, userID)
			if err != nil {
				status := http.StatusForbidden
				var ae *appErr.AppError
				if errors.As(err, &ae) && ae.Code == appErr.CodeNotFound {
					status = http.StatusNotFound
				}
				http.Error(w, http.StatusText(status), status)
				return
			}
			ctx := context.WithValue(r.Context(), OrgIDKey, org.ID)
			ctx = context.WithValue(ctx, OrgRoleKey, member.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOrgID returns the resolved organization id from context.
func GetOrgID(ctx context.Context) uuid.UUID {
	if v := ctx.Value(OrgIDKey); v != nil {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetOrgRole returns the caller's role in the resolved organization.
func GetOrgRole(ctx context.Context) string {
	if v := ctx.Value(OrgRoleKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
