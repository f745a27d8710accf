package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Me handles GET /me: the display layer's read of the resolved entitlement.
func (h *Handler) Me(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	premium, err := h.facade.IsPremium(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve entitlement"})
		return
	}

	plan, err := h.facade.CurrentPlan(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve plan"})
		return
	}

	resp := gin.H{
		"user_id":    userID,
		"email":      c.GetString("email"),
		"is_premium": premium,
	}
	if plan != nil {
		resp["plan"] = plan
	}
	c.JSON(http.StatusOK, resp)
}
