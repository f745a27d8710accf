package routes

import (
	"github.com/gin-gonic/gin"

	adminapi "comment-dashboard/internal/api/admin"
	authapi "comment-dashboard/internal/api/auth"
	"comment-dashboard/internal/api/billing"
	commentsapi "comment-dashboard/internal/api/comments"
	plansapi "comment-dashboard/internal/api/plans"
	stripewebhooks "comment-dashboard/internal/api/stripewebhook"
	"comment-dashboard/internal/app/http/middleware"
	"comment-dashboard/internal/domain/entitlements"
)

// Handlers bundles everything RegisterRoutes wires up.
type Handlers struct {
	JWTSecret string

	Auth     *authapi.Handler
	Plans    *plansapi.Handler
	Billing  *billing.Handler
	Webhook  *stripewebhooks.Handler
	Comments *commentsapi.Handler
	Admin    *adminapi.Handler
	Facade   *entitlements.Facade
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// Webhook sits outside sanitization: the raw body must reach signature
	// verification untouched.
	r.POST("/webhook", h.Webhook.HandleWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/plans", h.Plans.ListPlans)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(h.JWTSecret))
	auth.GET("/me", h.Billing.Me)
	auth.POST("/checkout/:plan_id", h.Billing.CreateCheckoutSession)
	auth.GET("/checkout/success", h.Billing.CheckoutSuccess)
	auth.POST("/downgrade", h.Billing.DowngradeToFree)
	auth.GET("/comments", h.Comments.ListComments)

	// Premium-only
	premium := auth.Group("/")
	premium.Use(middleware.RequirePremium(h.Facade))
	premium.GET("/comments/export", h.Comments.ExportComments)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.JWTSecret), middleware.RequireRole("admin"))
	admin.GET("/entitlements", h.Admin.ListEntitlements)
	admin.PUT("/entitlements/:user_id", h.Admin.EditEntitlement)
}
