package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-tracker/internal/handler"
	"github.com/iliyamo/donation-tracker/internal/middleware"
)

// RegisterAuth registers the authentication endpoints. Unauthenticated
// operations live under /api/v1/auth; the profile endpoints require a valid
// session token. The optional limiter middleware throttles the credential
// endpoints so they cannot be brute-forced; pass nil to disable.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/google-auth", a.GoogleAuth)

	auth := e.Group("/api/v1/auth", middleware.JWTAuth(jwtSecret))
	auth.GET("/profile", a.Profile)
	auth.POST("/change-password", a.ChangePassword)
}
