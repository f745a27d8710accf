package billing

import "errors"

// Typed failures for the checkout and reconciliation paths. Handlers map these
// to HTTP status codes with errors.Is; nothing below the handler boundary
// touches HTTP.
var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrNotPurchasable       = errors.New("plan is not purchasable")
	ErrMisconfiguredPricing = errors.New("plan has no stripe price configured")
	ErrProviderUnavailable  = errors.New("payment provider unavailable")
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrUserMismatch         = errors.New("checkout session belongs to a different user")
	ErrUserNotFound         = errors.New("user not found")
	ErrNoActiveEntitlement  = errors.New("user has no entitlement")
	ErrFreePlanMissing      = errors.New("no plan named \"free\" in the catalog")
	ErrMalformedPayload     = errors.New("malformed provider payload")
)
