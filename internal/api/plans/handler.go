package plans

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domain "comment-dashboard/internal/domain/plans"
)

type Handler struct {
	catalog *domain.Store

	// Publishable key, safe to hand to the pricing page for Stripe.js.
	stripePublicKey string
}

func NewHandler(catalog *domain.Store, stripePublicKey string) *Handler {
	return &Handler{catalog: catalog, stripePublicKey: stripePublicKey}
}

// ListPlans handles GET /plans: the pricing page's data source, ascending
// price.
func (h *Handler) ListPlans(c *gin.Context) {
	list, err := h.catalog.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plans":             list,
		"stripe_public_key": h.stripePublicKey,
	})
}
