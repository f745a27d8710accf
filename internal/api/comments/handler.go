package comments

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"comment-dashboard/internal/domain/comments"
)

// Handler is the display collaborator: it only reads comment records and, for
// the export, the resolved entitlement (enforced by the premium guard on the
// route, not here).
type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// ListComments handles GET /comments: newest first, capped like the dashboard.
func (h *Handler) ListComments(c *gin.Context) {
	var list []comments.YouTubeComment
	err := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").
		Limit(300).
		Find(&list).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// ExportComments handles GET /comments/export: the premium-gated CSV export.
func (h *Handler) ExportComments(c *gin.Context) {
	var list []comments.YouTubeComment
	err := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comments"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="comments.csv"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"video_id", "comment_id", "author", "comment_text", "like_count", "reply_count", "created_at", "engagement_score"})
	for _, cm := range list {
		_ = w.Write([]string{
			cm.VideoID,
			cm.CommentID,
			cm.Author,
			cm.CommentText,
			strconv.Itoa(cm.LikeCount),
			strconv.Itoa(cm.ReplyCount),
			cm.CreatedAt.Format(time.RFC3339),
			strconv.FormatFloat(cm.EngagementScore, 'f', -1, 64),
		})
	}
	w.Flush()
}
