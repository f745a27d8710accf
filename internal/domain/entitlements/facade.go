package entitlements

import (
	"context"
	"errors"
	"time"

	"comment-dashboard/internal/domain/plans"
)

// Reader is the slice of the store the facade needs.
type Reader interface {
	GetActive(ctx context.Context, userID uint) (*Entitlement, error)
}

// FreePlanResolver resolves the canonical free plan for lapsed reads.
type FreePlanResolver interface {
	GetByName(ctx context.Context, name string) (*plans.Plan, error)
}

// Facade is the single read path collaborators use to ask "is this user
// premium, and what plan do they hold". Expiry is enforced at read time: a row
// whose expires_at has passed reads as free even before a reconciliation pass
// flips is_active.
type Facade struct {
	store   Reader
	catalog FreePlanResolver
	now     func() time.Time
}

func NewFacade(store Reader, catalog FreePlanResolver) *Facade {
	return &Facade{store: store, catalog: catalog, now: time.Now}
}

func (f *Facade) IsPremium(ctx context.Context, userID uint) (bool, error) {
	e, err := f.store.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.PremiumAt(f.now()), nil
}

// CurrentPlan returns the plan the user effectively holds: nil when the user
// has no entitlement row, the free plan when the row is inactive or expired,
// otherwise the stored plan.
func (f *Facade) CurrentPlan(ctx context.Context, userID uint) (*plans.Plan, error) {
	e, err := f.store.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !e.IsActive || e.ExpiredAt(f.now()) {
		return f.catalog.GetByName(ctx, plans.FreePlanName)
	}

	plan := e.Plan
	return &plan, nil
}
