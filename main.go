package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"comment-dashboard/config"
	"comment-dashboard/database"
	adminapi "comment-dashboard/internal/api/admin"
	authapi "comment-dashboard/internal/api/auth"
	"comment-dashboard/internal/api/billing"
	commentsapi "comment-dashboard/internal/api/comments"
	plansapi "comment-dashboard/internal/api/plans"
	stripewebhooks "comment-dashboard/internal/api/stripewebhook"
	routes "comment-dashboard/internal/app/http"
	"comment-dashboard/internal/domain/entitlements"
	"comment-dashboard/internal/domain/plans"
	"comment-dashboard/internal/domain/users"
	stripeinfra "comment-dashboard/internal/infra/stripe"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	db := database.InitDB(cfg.DBURL)
	database.SeedPlans(db, cfg.StripeProPriceID)

	// One Stripe client, built from config, injected everywhere.
	stripeClient := stripeinfra.NewClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	planStore := plans.NewStore(db)
	userStore := users.NewStore(db)
	entStore := entitlements.NewStore(db)
	facade := entitlements.NewFacade(entStore, planStore)

	svc := billing.NewService(
		planStore, entStore, userStore, stripeClient,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, cfg.StripeProPriceID,
	)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Handlers{
		JWTSecret: cfg.JWTSecret,
		Auth:      authapi.NewHandler(userStore, cfg.JWTSecret),
		Plans:     plansapi.NewHandler(planStore, cfg.StripePublicKey),
		Billing:   billing.NewHandler(svc, facade),
		Webhook:   stripewebhooks.NewHandler(stripeClient, entStore, svc),
		Comments:  commentsapi.NewHandler(db),
		Admin:     adminapi.NewHandler(userStore, entStore, planStore),
		Facade:    facade,
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}
