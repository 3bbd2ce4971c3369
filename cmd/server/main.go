package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-tracker/internal/config"
	"github.com/iliyamo/donation-tracker/internal/database"
	"github.com/iliyamo/donation-tracker/internal/export"
	"github.com/iliyamo/donation-tracker/internal/handler"
	"github.com/iliyamo/donation-tracker/internal/middleware"
	"github.com/iliyamo/donation-tracker/internal/queue"
	"github.com/iliyamo/donation-tracker/internal/repository"
	"github.com/iliyamo/donation-tracker/internal/router"
	"github.com/iliyamo/donation-tracker/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	invites := repository.NewInviteRepo(db)
	donors := repository.NewDonorRepo(db)
	campaigns := repository.NewCampaignRepo(db)
	donations := repository.NewDonationRepo(db)
	sponsorships := repository.NewSponsorshipRepo(db)

	google := service.NewGoogleVerifier(cfg.GoogleClientID)

	auth := handler.NewAuthHandler(cfg, users, invites, google)
	api := router.APIHandlers{
		Donors:       handler.NewDonorHandler(donors),
		Campaigns:    handler.NewCampaignHandler(campaigns),
		Donations:    handler.NewDonationHandler(donations, campaigns),
		Sponsorships: handler.NewSponsorshipHandler(sponsorships, donations, campaigns),
		Invites:      handler.NewInviteHandler(cfg, invites),
		Users:        handler.NewUserHandler(cfg, users),
		Export:       handler.NewExportHandler(export.NewExporter(donations, sponsorships)),
	}

	// Redis is optional: without it the limiter and cache middlewares are
	// skipped and every request goes straight to the handlers.
	var limiter, cache echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	// Audit trail consumer; runs for the life of the process and survives
	// broker outages via its own reconnect loop.
	go queue.StartDonationConsumer(os.Getenv("RABBITMQ_URL"))

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e, api.Invites)
	router.RegisterAuth(e, auth, cfg.JWTSecret, limiter)
	router.RegisterAPI(e, api, users, cfg.JWTSecret, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
