package billing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"comment-dashboard/internal/domain/entitlements"
)

// Handler exposes the billing HTTP surface. All state lives in the injected
// service and facade.
type Handler struct {
	svc    *Service
	facade *entitlements.Facade
}

func NewHandler(svc *Service, facade *entitlements.Facade) *Handler {
	return &Handler{svc: svc, facade: facade}
}

// CreateCheckoutSession handles POST /checkout/:plan_id.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	planID, err := strconv.ParseUint(c.Param("plan_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan id"})
		return
	}

	url, err := h.svc.BeginCheckout(c.Request.Context(), userID, uint(planID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// respondError maps typed billing failures to HTTP statuses with an
// actionable message.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
	case errors.Is(err, ErrNotPurchasable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "This plan is free and cannot be checked out. Change plans from your account instead."})
	case errors.Is(err, ErrMisconfiguredPricing):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Plan pricing is not configured. Please contact support."})
	case errors.Is(err, ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider is unavailable. Please try again in a moment."})
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
	case errors.Is(err, ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Checkout session not found"})
	case errors.Is(err, ErrUserMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "This checkout session belongs to a different account"})
	case errors.Is(err, ErrNoActiveEntitlement):
		c.JSON(http.StatusNotFound, gin.H{"error": "No subscription found for this account"})
	case errors.Is(err, ErrFreePlanMissing):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Free plan is missing from the catalog. Please contact support."})
	case errors.Is(err, ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed provider payload"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
