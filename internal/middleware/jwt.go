package middleware // middleware provides reusable HTTP guards applied before handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-tracker/internal/utils"
)

// Context keys under which JWTAuth stores the verified identity. Downstream
// guards and handlers read these instead of re-parsing the token.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRoles  = "roles"
)

// JWTAuth returns an Echo middleware that validates a Bearer session token
// and injects the token's identity and role-snapshot claims into the
// request context. Missing, expired, forged and malformed tokens all
// produce the same 401 so the response leaks nothing about which case
// occurred.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			claims, err := utils.ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRoles, claims.Roles)
			return next(c)
		}
	}
}

// UserID extracts the authenticated user's id from the context. It returns
// false when JWTAuth has not run or did not succeed.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok
}

// Roles extracts the token's role snapshot from the context.
func Roles(c echo.Context) []utils.RoleClaim {
	roles, _ := c.Get(CtxRoles).([]utils.RoleClaim)
	return roles
}
