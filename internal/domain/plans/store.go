package plans

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no plan matches the lookup.
var ErrNotFound = errors.New("plan not found")

// Store is the GORM-backed plan catalog.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns all plans ordered by ascending price.
func (s *Store) List(ctx context.Context) ([]Plan, error) {
	var out []Plan
	if err := s.db.WithContext(ctx).Order("price_cents ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id uint) (*Plan, error) {
	var p Plan
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetByName(ctx context.Context, name string) (*Plan, error) {
	var p Plan
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByPriceID maps a Stripe price back to the local plan. Used by the webhook
// path when a subscription names a price the checkout metadata did not.
func (s *Store) GetByPriceID(ctx context.Context, priceID string) (*Plan, error) {
	if priceID == "" {
		return nil, ErrNotFound
	}
	var p Plan
	if err := s.db.WithContext(ctx).Where("stripe_price_id = ?", priceID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
