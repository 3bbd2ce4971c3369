package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-tracker/internal/handler"
	"github.com/iliyamo/donation-tracker/internal/middleware"
	"github.com/iliyamo/donation-tracker/internal/model"
	"github.com/iliyamo/donation-tracker/internal/repository"
)

// APIHandlers bundles the handlers mounted under /api/v1 so RegisterAPI does
// not grow a parameter per resource.
type APIHandlers struct {
	Donors       *handler.DonorHandler
	Campaigns    *handler.CampaignHandler
	Donations    *handler.DonationHandler
	Sponsorships *handler.SponsorshipHandler
	Invites      *handler.InviteHandler
	Users        *handler.UserHandler
	Export       *handler.ExportHandler
}

// RegisterAPI registers the authenticated API under /api/v1. Every route
// requires a valid session token. Donation writes are additionally guarded
// by tower assignment, and administrative resources by the admin role. The
// optional cache middleware is applied to the read-heavy stats endpoint;
// pass nil to disable.
func RegisterAPI(e *echo.Echo, h APIHandlers, users *repository.UserRepo, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/api/v1", middleware.JWTAuth(jwtSecret))

	// ---- Donors ----
	g.GET("/donors", h.Donors.List)
	g.GET("/donors/:id", h.Donors.Get)
	g.POST("/donors", h.Donors.Create)
	g.PUT("/donors/:id", h.Donors.Update)
	g.DELETE("/donors/:id", h.Donors.Delete)

	// ---- Campaigns ----
	g.GET("/campaigns", h.Campaigns.List)
	g.GET("/campaigns/:id", h.Campaigns.Get)
	g.POST("/campaigns", h.Campaigns.Create, middleware.RequireRole(model.RoleAdmin))
	g.PUT("/campaigns/:id", h.Campaigns.Update, middleware.RequireRole(model.RoleAdmin))
	g.DELETE("/campaigns/:id", h.Campaigns.Delete, middleware.RequireRole(model.RoleAdmin))

	// ---- Donations ----
	g.GET("/donations", h.Donations.List)
	g.GET("/donations/:id", h.Donations.Get)
	g.GET("/donations/apartment/:tower/:floor/:unit", h.Donations.ByApartment,
		middleware.RequireTowerAccess(users, middleware.TowerFromPath))
	g.POST("/donations", h.Donations.Create,
		middleware.RequireTowerAccess(users, middleware.TowerFromBody))
	g.PUT("/donations/:id", h.Donations.Update,
		middleware.RequireTowerAccess(users, middleware.TowerFromBody))
	g.DELETE("/donations/:id", h.Donations.Delete, middleware.RequireRole(model.RoleAdmin))

	// ---- Sponsorships ----
	g.GET("/sponsorships", h.Sponsorships.List)
	g.POST("/sponsorships", h.Sponsorships.Create, middleware.RequireRole(model.RoleAdmin))
	g.POST("/sponsorships/:id/book", h.Sponsorships.Book,
		middleware.RequireTowerAccess(users, middleware.TowerFromBody))

	// ---- Stats ----
	if cache != nil {
		g.GET("/stats", h.Donations.Stats, cache)
	} else {
		g.GET("/stats", h.Donations.Stats)
	}

	// ---- Admin: invites and users live under the auth prefix ----
	admin := e.Group("/api/v1/auth", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	admin.POST("/invites", h.Invites.Create)
	admin.GET("/invites", h.Invites.List)
	admin.GET("/users", h.Users.List)
	admin.POST("/users", h.Users.Create)
	admin.PUT("/users/:id", h.Users.Update)
	admin.DELETE("/users/:id", h.Users.Delete)

	g.GET("/export/excel", h.Export.Excel, middleware.RequireRole(model.RoleAdmin))
}
