package comments

import "time"

// YouTubeComment is display data owned by the dashboard; the billing core
// never reads it. It is here so the premium-gated export has something to
// export.
type YouTubeComment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	VideoID         string    `gorm:"size:50" json:"video_id"`
	CommentID       string    `gorm:"size:100;uniqueIndex:idx_youtube_comments_comment_id" json:"comment_id"`
	Author          string    `gorm:"size:100" json:"author"`
	CommentText     string    `gorm:"type:text" json:"comment_text"`
	LikeCount       int       `gorm:"not null;default:0" json:"like_count"`
	ReplyCount      int       `gorm:"not null;default:0" json:"reply_count"`
	CreatedAt       time.Time `json:"created_at"`
	EngagementScore float64   `gorm:"not null;default:0" json:"engagement_score"`
}
