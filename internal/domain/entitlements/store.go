package entitlements

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a user has no entitlement row, or a customer id
// has no stored link.
var ErrNotFound = errors.New("entitlement not found")

// Store is the GORM-backed entitlement store. All mutations are single-row
// statements keyed by the unique user_id index, so concurrent writers for the
// same user serialize on the row and never produce duplicates.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetActive(ctx context.Context, userID uint) (*Entitlement, error) {
	var e Entitlement
	err := s.db.WithContext(ctx).Preload("Plan").Where("user_id = ?", userID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// GetBySubscriptionID resolves an entitlement from a Stripe subscription id.
// Fallback path for webhook events whose metadata carries no user_id.
func (s *Store) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Entitlement, error) {
	if subscriptionID == "" {
		return nil, ErrNotFound
	}
	var e Entitlement
	err := s.db.WithContext(ctx).Preload("Plan").Where("stripe_subscription_id = ?", subscriptionID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// UpsertParams is an absolute target state for a user's entitlement row, never
// an increment. Applying the same params twice converges to the same row.
type UpsertParams struct {
	UserID               uint
	PlanID               uint
	Active               bool
	StartedAt            time.Time
	ExpiresAt            *time.Time
	StripeSubscriptionID *string
}

// Upsert creates the user's entitlement row or rewrites it in place. The
// ON CONFLICT clause on user_id makes two concurrent creates collapse into one
// row.
func (s *Store) Upsert(ctx context.Context, p UpsertParams) (*Entitlement, error) {
	e := Entitlement{
		UserID:               p.UserID,
		PlanID:               p.PlanID,
		IsActive:             p.Active,
		StartedAt:            p.StartedAt,
		ExpiresAt:            p.ExpiresAt,
		StripeSubscriptionID: p.StripeSubscriptionID,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id", "is_active", "started_at", "expires_at", "stripe_subscription_id", "updated_at",
		}),
	}).Create(&e).Error
	if err != nil {
		return nil, err
	}

	return s.GetActive(ctx, p.UserID)
}

// Downgrade repoints an existing entitlement at the free plan: active, no
// expiry. The free tier is always "active" (distinct from a cancelled paid
// subscription that lapsed to inactive). Returns ErrNotFound when the user has
// no row at all.
func (s *Store) Downgrade(ctx context.Context, userID uint, freePlanID uint) (*Entitlement, error) {
	res := s.db.WithContext(ctx).Model(&Entitlement{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"plan_id":                freePlanID,
			"is_active":              true,
			"expires_at":             nil,
			"stripe_subscription_id": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetActive(ctx, userID)
}

// LinkCustomer records (or repoints) the customer-id -> user-id association.
func (s *Store) LinkCustomer(ctx context.Context, customerID string, userID uint) error {
	link := CustomerLink{StripeCustomerID: customerID, UserID: userID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at"}),
	}).Create(&link).Error
}

func (s *Store) UserForCustomer(ctx context.Context, customerID string) (uint, error) {
	if customerID == "" {
		return 0, ErrNotFound
	}
	var link CustomerLink
	err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return link.UserID, nil
}

// Seen reports whether an event id is already in the idempotency ledger.
func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&WebhookEvent{}).Where("event_id = ?", eventID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed records an event id in the ledger. Safe to call twice: the
// second insert is dropped by the unique index.
func (s *Store) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	ev := WebhookEvent{EventID: eventID, Type: eventType, ReceivedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&ev).Error
}
