package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"comment-dashboard/internal/domain/entitlements"
	"comment-dashboard/internal/domain/plans"
	"comment-dashboard/internal/domain/users"
)

// Handler is the operator surface for inspecting and editing entitlements.
// Edits take explicit JSON inputs; nothing is inferred from ambient request
// state.
type Handler struct {
	users        *users.Store
	entitlements *entitlements.Store
	catalog      *plans.Store
}

func NewHandler(userStore *users.Store, entStore *entitlements.Store, catalog *plans.Store) *Handler {
	return &Handler{users: userStore, entitlements: entStore, catalog: catalog}
}

// ListEntitlements handles GET /admin/entitlements.
func (h *Handler) ListEntitlements(c *gin.Context) {
	ctx := c.Request.Context()

	userList, err := h.users.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	out := make([]gin.H, 0, len(userList))
	for _, u := range userList {
		row := gin.H{
			"user_id": u.ID,
			"email":   u.Email,
		}
		ent, err := h.entitlements.GetActive(ctx, u.ID)
		if err == nil {
			row["entitlement"] = ent
			row["is_premium"] = ent.PremiumAt(time.Now())
		} else if !errors.Is(err, entitlements.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entitlements"})
			return
		}
		out = append(out, row)
	}

	c.JSON(http.StatusOK, out)
}

// EditEntitlement handles PUT /admin/entitlements/:user_id.
func (h *Handler) EditEntitlement(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var input struct {
		PlanID    uint       `json:"plan_id" binding:"required"`
		Active    bool       `json:"active"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	if _, err := h.users.Get(ctx, uint(userID)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if _, err := h.catalog.Get(ctx, input.PlanID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan"})
		return
	}

	startedAt := time.Now()
	if existing, err := h.entitlements.GetActive(ctx, uint(userID)); err == nil {
		startedAt = existing.StartedAt
	}

	ent, err := h.entitlements.Upsert(ctx, entitlements.UpsertParams{
		UserID:    uint(userID),
		PlanID:    input.PlanID,
		Active:    input.Active,
		StartedAt: startedAt,
		ExpiresAt: input.ExpiresAt,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update entitlement"})
		return
	}

	c.JSON(http.StatusOK, ent)
}
