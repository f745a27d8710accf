package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DowngradeToFree handles POST /downgrade: repoints the caller's entitlement
// at the free plan. The row survives; only the plan changes.
func (h *Handler) DowngradeToFree(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	ent, err := h.svc.DowngradeToFree(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Downgraded to free plan",
		"entitlement": ent,
	})
}
