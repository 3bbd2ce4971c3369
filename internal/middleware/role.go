package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that enforces that the authenticated
// user's token snapshot includes the required role. It must run after
// JWTAuth. Note the asymmetry with RequireTowerAccess: this check trusts
// the roles embedded in the token at issuance time, so a role revocation
// does not bite here until the token expires and is reissued.
func RequireRole(required string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			for _, r := range Roles(c) {
				if r.Role == required {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}
