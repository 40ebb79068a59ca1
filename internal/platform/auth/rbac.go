package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/pkg/respond"
)

// RequireRole returns middleware that rejects callers lacking all of the given
// roles. Admins pass every role check.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFromContext(c.Request().Context())
			if !ok {
				return respond.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "no authenticated caller")
			}
			if caller.IsAdmin() {
				return next(c)
			}
			for _, required := range roles {
				if caller.Role == required {
					return next(c)
				}
			}
			return respond.Error(c, http.StatusForbidden, "FORBIDDEN", "insufficient role")
		}
	}
}

// RequireAdmin is shorthand for RequireRole(RoleAdmin).
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(RoleAdmin)
}
