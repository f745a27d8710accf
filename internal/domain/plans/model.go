package plans

import "time"

// Plan is a catalog offering. Prices are stored in minor units (cents) so no
// float ever touches money. StripePriceID may be empty for plans that are never
// checked out (the free tier).
type Plan struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"not null;uniqueIndex:idx_plans_name" json:"name"`
	DisplayName   string `json:"display_name"`
	PriceCents    int64  `gorm:"not null;default:0" json:"price_cents"`
	IsPremium     bool   `gorm:"not null;default:false" json:"is_premium"`
	StripePriceID string `gorm:"column:stripe_price_id" json:"-"`
	Description   string `json:"description"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// FreePlanName is the canonical name of the free tier. Seeding asserts a plan
// with this name exists; downgrade resolves it by name.
const FreePlanName = "free"
