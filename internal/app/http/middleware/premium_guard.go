package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"comment-dashboard/internal/domain/entitlements"
)

// RequirePremium gates premium-only routes on the resolved entitlement. The
// facade enforces expiry at read time, so a lapsed subscription is rejected
// here even if no reconciliation pass has flipped the row yet.
func RequirePremium(facade *entitlements.Facade) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
			return
		}

		premium, err := facade.IsPremium(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve entitlement"})
			return
		}
		if !premium {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "This feature requires a premium plan"})
			return
		}

		c.Next()
	}
}
