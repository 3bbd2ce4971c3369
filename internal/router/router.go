// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-tracker/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication: the
// health check used by load balancers and the public invite lookup that the
// registration page calls before the visitor has an account.
func RegisterRoutes(e *echo.Echo, inv *handler.InviteHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/api/v1/auth/invites/:code", inv.GetByCode)
}
