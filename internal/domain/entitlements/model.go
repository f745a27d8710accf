package entitlements

import (
	"time"

	"comment-dashboard/internal/domain/plans"
)

// Entitlement is the durable record of which plan a user holds. There is at
// most one row per user (unique user_id); downgrades repoint plan_id at the
// free plan instead of deleting the row.
type Entitlement struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_entitlements_user_id" json:"user_id"`

	PlanID uint       `gorm:"not null" json:"plan_id"`
	Plan   plans.Plan `json:"plan"`

	IsActive  bool       `gorm:"not null;default:false" json:"is_active"`
	StartedAt time.Time  `json:"started_at"`
	ExpiresAt *time.Time `json:"expires_at"`

	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id;index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpiredAt reports whether the entitlement's expiry has passed. A nil
// expires_at never expires (the free tier).
func (e *Entitlement) ExpiredAt(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// PremiumAt is the derived premium flag: active, unexpired and on a premium
// plan. Readers use this instead of is_active so a lapsed row reads as free
// before any reconciliation pass physically flips it.
func (e *Entitlement) PremiumAt(now time.Time) bool {
	return e.IsActive && !e.ExpiredAt(now) && e.Plan.IsPremium
}

// CustomerLink maps a Stripe customer id to a local user. Written on every
// successful checkout confirmation; it is what lets subscription.deleted
// events find the affected user.
type CustomerLink struct {
	ID               uint   `gorm:"primaryKey"`
	StripeCustomerID string `gorm:"not null;uniqueIndex:idx_customer_links_stripe_customer_id"`
	UserID           uint   `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WebhookEvent is the idempotency ledger: one row per processed provider event
// id. Rows are kept forever; Stripe redeliveries span days and the rows are
// tiny.
type WebhookEvent struct {
	ID         uint   `gorm:"primaryKey"`
	EventID    string `gorm:"not null;uniqueIndex:idx_webhook_events_event_id"`
	Type       string
	ReceivedAt time.Time
}
