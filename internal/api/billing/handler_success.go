package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckoutSuccess handles GET /checkout/success?session_id=... — the
// synchronous confirmation redirect from Stripe. Idempotent: landing here
// twice with the same session id returns the same entitlement.
func (h *Handler) CheckoutSuccess(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id"})
		return
	}

	ent, err := h.svc.ConfirmCheckout(c.Request.Context(), sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Subscription activated",
		"entitlement": ent,
	})
}
