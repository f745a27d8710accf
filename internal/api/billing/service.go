package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v75"

	"comment-dashboard/internal/domain/entitlements"
	"comment-dashboard/internal/domain/plans"
	"comment-dashboard/internal/domain/users"
	stripeinfra "comment-dashboard/internal/infra/stripe"
)

// renewalWindow is the fixed expiry granted by a synchronous confirmation,
// matching a monthly billing cycle. Webhook-driven updates prefer Stripe's
// current_period_end when present.
const renewalWindow = 30 * 24 * time.Hour

// providerTimeout bounds the blocking outbound call to Stripe. No automatic
// retry: redelivery is the provider's job.
const providerTimeout = 15 * time.Second

// Catalog is the slice of the plan store the service needs.
type Catalog interface {
	Get(ctx context.Context, id uint) (*plans.Plan, error)
	GetByName(ctx context.Context, name string) (*plans.Plan, error)
	GetByPriceID(ctx context.Context, priceID string) (*plans.Plan, error)
}

// EntitlementStore is the mutation surface of the entitlement store plus the
// customer directory and the idempotency ledger. One interface because the
// GORM store backs all three and they share transactionality concerns.
type EntitlementStore interface {
	GetActive(ctx context.Context, userID uint) (*entitlements.Entitlement, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*entitlements.Entitlement, error)
	Upsert(ctx context.Context, p entitlements.UpsertParams) (*entitlements.Entitlement, error)
	Downgrade(ctx context.Context, userID uint, freePlanID uint) (*entitlements.Entitlement, error)
	LinkCustomer(ctx context.Context, customerID string, userID uint) error
	UserForCustomer(ctx context.Context, customerID string) (uint, error)
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}

// UserDirectory resolves local users for checkout (email prefill).
type UserDirectory interface {
	Get(ctx context.Context, id uint) (*users.User, error)
}

// Provider is the outbound Stripe surface. Faked in tests.
type Provider interface {
	CreateSubscriptionCheckout(ctx context.Context, p stripeinfra.CheckoutParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

// Service owns the entitlement state machine: checkout initiation, the
// synchronous success confirmation, webhook-driven reconciliation and the
// explicit downgrade. Every transition is idempotent and applied against
// current stored state, never an assumed prior event.
type Service struct {
	catalog  Catalog
	store    EntitlementStore
	users    UserDirectory
	provider Provider

	successURL      string
	cancelURL       string
	fallbackPriceID string

	now func() time.Time
}

func NewService(catalog Catalog, store EntitlementStore, userDir UserDirectory, provider Provider, successURL, cancelURL, fallbackPriceID string) *Service {
	return &Service{
		catalog:         catalog,
		store:           store,
		users:           userDir,
		provider:        provider,
		successURL:      successURL,
		cancelURL:       cancelURL,
		fallbackPriceID: fallbackPriceID,
		now:             time.Now,
	}
}

// BeginCheckout starts a subscription checkout for a user/plan pair and
// returns the provider-hosted redirect URL. Nothing is persisted locally; the
// provider holds the in-flight checkout and echoes back {user_id, plan_id}.
func (s *Service) BeginCheckout(ctx context.Context, userID uint, planID uint) (string, error) {
	plan, err := s.catalog.Get(ctx, planID)
	if err != nil {
		if errors.Is(err, plans.ErrNotFound) {
			return "", ErrPlanNotFound
		}
		return "", err
	}
	if !plan.IsPremium {
		return "", ErrNotPurchasable
	}

	priceID := plan.StripePriceID
	if priceID == "" {
		priceID = s.fallbackPriceID
	}
	if priceID == "" {
		return "", fmt.Errorf("%w: plan %q", ErrMisconfiguredPricing, plan.Name)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	sess, err := s.provider.CreateSubscriptionCheckout(ctx, stripeinfra.CheckoutParams{
		CustomerEmail: user.Email,
		PriceID:       priceID,
		SuccessURL:    s.successURL + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.cancelURL,
		ClientRef:     formatID(userID),
		Metadata: map[string]string{
			"user_id": formatID(userID),
			"plan_id": formatID(plan.ID),
		},
	})
	if err != nil {
		log.Error().Err(err).Uint("user_id", userID).Uint("plan_id", plan.ID).
			Msg("stripe checkout session creation failed")
		return "", fmt.Errorf("%w: %s", ErrProviderUnavailable, providerErrCode(err))
	}
	if sess == nil || sess.URL == "" {
		log.Error().Uint("user_id", userID).Uint("plan_id", plan.ID).
			Msg("stripe returned a checkout session without a redirect URL")
		return "", ErrProviderUnavailable
	}

	return sess.URL, nil
}

// ConfirmCheckout handles the synchronous success redirect. The session is
// fetched from the provider, its metadata is checked against the requesting
// user (session hijack guard), and the entitlement is upserted. Replays of the
// same session id are absorbed by the ledger: the entitlement is returned
// unchanged, expiry not extended.
func (s *Service) ConfirmCheckout(ctx context.Context, sessionID string, requestingUserID uint) (*entitlements.Entitlement, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	sess, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil || sess == nil {
		log.Warn().Err(err).Str("session_id", sessionID).Uint("user_id", requestingUserID).
			Msg("checkout session lookup failed")
		return nil, ErrSessionNotFound
	}

	userID, plan, err := s.resolveSessionTarget(ctx, sess)
	if err != nil {
		return nil, err
	}
	if userID != requestingUserID {
		log.Warn().Str("session_id", sessionID).Uint("session_user", userID).Uint("requesting_user", requestingUserID).
			Msg("checkout session user mismatch")
		return nil, ErrUserMismatch
	}

	return s.applyConfirmedSession(ctx, sess, userID, plan)
}

// ApplyCheckoutCompleted is the webhook side of checkout confirmation. Same
// upsert as ConfirmCheckout, keyed by the session metadata; no user-mismatch
// check since the payload is signature-verified rather than user-initiated.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	if sess == nil || sess.ID == "" {
		return ErrMalformedPayload
	}

	// Thin webhook payloads can arrive without metadata; refetch the session
	// before giving up on correlation.
	if sess.Metadata["user_id"] == "" && sess.ClientReferenceID == "" {
		full, err := s.provider.GetCheckoutSession(ctx, sess.ID)
		if err != nil || full == nil {
			return fmt.Errorf("%w: refetch session %s: %s", ErrProviderUnavailable, sess.ID, providerErrCode(err))
		}
		sess = full
	}

	userID, plan, err := s.resolveSessionTarget(ctx, sess)
	if err != nil {
		return err
	}

	_, err = s.applyConfirmedSession(ctx, sess, userID, plan)
	return err
}

// applyConfirmedSession is the single write path for a confirmed checkout,
// shared by the redirect and webhook routes so both stay idempotent under the
// same ledger key.
func (s *Service) applyConfirmedSession(ctx context.Context, sess *stripe.CheckoutSession, userID uint, plan *plans.Plan) (*entitlements.Entitlement, error) {
	key := sessionLedgerKey(sess.ID)

	seen, err := s.store.Seen(ctx, key)
	if err != nil {
		return nil, err
	}
	if seen {
		e, err := s.store.GetActive(ctx, userID)
		if errors.Is(err, entitlements.ErrNotFound) {
			return nil, ErrNoActiveEntitlement
		}
		return e, err
	}

	now := s.now()
	expires := now.Add(renewalWindow)

	var subID *string
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		id := sess.Subscription.ID
		subID = &id
	}

	e, err := s.store.Upsert(ctx, entitlements.UpsertParams{
		UserID:               userID,
		PlanID:               plan.ID,
		Active:               true,
		StartedAt:            now,
		ExpiresAt:            &expires,
		StripeSubscriptionID: subID,
	})
	if err != nil {
		return nil, err
	}

	if sess.Customer != nil && sess.Customer.ID != "" {
		if err := s.store.LinkCustomer(ctx, sess.Customer.ID, userID); err != nil {
			return nil, err
		}
	}

	// Marked only after a successful apply so a failed apply stays retryable.
	if err := s.store.MarkProcessed(ctx, key, "checkout.session.completed"); err != nil {
		return nil, err
	}

	log.Info().Uint("user_id", userID).Uint("plan_id", plan.ID).Str("session_id", sess.ID).
		Msg("checkout confirmed, entitlement upserted")
	return e, nil
}

// ApplySubscriptionUpdated reconciles a customer.subscription.updated event
// against current stored state. Entitling statuses upsert an active
// entitlement through the provider's period end; terminal statuses deactivate
// the row (it then reads as free); anything else only moves the expiry.
func (s *Service) ApplySubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil || sub.ID == "" {
		return ErrMalformedPayload
	}

	userID, ok := s.resolveSubscriptionUser(ctx, sub)
	if !ok {
		log.Warn().Str("subscription_id", sub.ID).Msg("subscription.updated for unknown user, ignoring")
		return nil
	}

	plan := s.resolveSubscriptionPlan(ctx, sub)

	existing, err := s.store.GetActive(ctx, userID)
	if err != nil && !errors.Is(err, entitlements.ErrNotFound) {
		return err
	}

	periodEnd := s.now().Add(renewalWindow)
	if sub.CurrentPeriodEnd > 0 {
		periodEnd = time.Unix(sub.CurrentPeriodEnd, 0)
	}

	status := string(sub.Status)
	subID := sub.ID

	switch {
	case stripeinfra.IsEntitling(status):
		if plan == nil {
			if existing == nil {
				log.Warn().Str("subscription_id", sub.ID).Msg("subscription.updated names no known plan, ignoring")
				return nil
			}
			plan = &existing.Plan
		}
		startedAt := s.now()
		if existing != nil && existing.PlanID == plan.ID {
			startedAt = existing.StartedAt
		}
		_, err = s.store.Upsert(ctx, entitlements.UpsertParams{
			UserID:               userID,
			PlanID:               plan.ID,
			Active:               true,
			StartedAt:            startedAt,
			ExpiresAt:            &periodEnd,
			StripeSubscriptionID: &subID,
		})
		return err

	case stripeinfra.IsTerminal(status):
		if existing == nil {
			return nil
		}
		_, err = s.store.Upsert(ctx, entitlements.UpsertParams{
			UserID:               userID,
			PlanID:               existing.PlanID,
			Active:               false,
			StartedAt:            existing.StartedAt,
			ExpiresAt:            &periodEnd,
			StripeSubscriptionID: &subID,
		})
		return err

	default:
		// past_due and friends: keep the current activation, move the window.
		if existing == nil {
			return nil
		}
		_, err = s.store.Upsert(ctx, entitlements.UpsertParams{
			UserID:               userID,
			PlanID:               existing.PlanID,
			Active:               existing.IsActive,
			StartedAt:            existing.StartedAt,
			ExpiresAt:            &periodEnd,
			StripeSubscriptionID: &subID,
		})
		return err
	}
}

// ApplySubscriptionDeleted transitions the affected user to the free plan.
// The user is resolved through the stored customer link written at
// confirmation time (metadata and subscription id as fallbacks).
func (s *Service) ApplySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil || sub.ID == "" {
		return ErrMalformedPayload
	}

	userID, ok := s.resolveSubscriptionUser(ctx, sub)
	if !ok {
		log.Warn().Str("subscription_id", sub.ID).Msg("subscription.deleted for unknown user, ignoring")
		return nil
	}

	free, err := s.catalog.GetByName(ctx, plans.FreePlanName)
	if err != nil {
		if errors.Is(err, plans.ErrNotFound) {
			return ErrFreePlanMissing
		}
		return err
	}

	if _, err := s.store.Downgrade(ctx, userID, free.ID); err != nil {
		if errors.Is(err, entitlements.ErrNotFound) {
			return nil
		}
		return err
	}

	log.Info().Uint("user_id", userID).Str("subscription_id", sub.ID).
		Msg("subscription deleted, user downgraded to free")
	return nil
}

// DowngradeToFree is the explicit user-initiated downgrade.
func (s *Service) DowngradeToFree(ctx context.Context, userID uint) (*entitlements.Entitlement, error) {
	free, err := s.catalog.GetByName(ctx, plans.FreePlanName)
	if err != nil {
		if errors.Is(err, plans.ErrNotFound) {
			return nil, ErrFreePlanMissing
		}
		return nil, err
	}

	e, err := s.store.Downgrade(ctx, userID, free.ID)
	if err != nil {
		if errors.Is(err, entitlements.ErrNotFound) {
			return nil, ErrNoActiveEntitlement
		}
		return nil, err
	}
	return e, nil
}

// resolveSessionTarget extracts the {user_id, plan_id} correlation metadata
// from a checkout session. Values round-trip as strings and are parsed here,
// nowhere else.
func (s *Service) resolveSessionTarget(ctx context.Context, sess *stripe.CheckoutSession) (uint, *plans.Plan, error) {
	uidStr := sess.Metadata["user_id"]
	if uidStr == "" {
		uidStr = sess.ClientReferenceID
	}
	userID, err := parseID(uidStr)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: session %s has no usable user_id", ErrMalformedPayload, sess.ID)
	}

	planID, err := parseID(sess.Metadata["plan_id"])
	if err != nil {
		return 0, nil, fmt.Errorf("%w: session %s has no usable plan_id", ErrMalformedPayload, sess.ID)
	}

	plan, err := s.catalog.Get(ctx, planID)
	if err != nil {
		if errors.Is(err, plans.ErrNotFound) {
			return 0, nil, ErrPlanNotFound
		}
		return 0, nil, err
	}
	return userID, plan, nil
}

// resolveSubscriptionUser finds the local user for a subscription event:
// metadata first, stored customer link second, subscription id last.
func (s *Service) resolveSubscriptionUser(ctx context.Context, sub *stripe.Subscription) (uint, bool) {
	if id, err := parseID(sub.Metadata["user_id"]); err == nil {
		return id, true
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		if id, err := s.store.UserForCustomer(ctx, sub.Customer.ID); err == nil {
			return id, true
		}
	}
	if e, err := s.store.GetBySubscriptionID(ctx, sub.ID); err == nil {
		return e.UserID, true
	}
	return 0, false
}

func (s *Service) resolveSubscriptionPlan(ctx context.Context, sub *stripe.Subscription) *plans.Plan {
	if id, err := parseID(sub.Metadata["plan_id"]); err == nil {
		if plan, err := s.catalog.Get(ctx, id); err == nil {
			return plan
		}
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		if plan, err := s.catalog.GetByPriceID(ctx, sub.Items.Data[0].Price.ID); err == nil {
			return plan
		}
	}
	return nil
}

func sessionLedgerKey(sessionID string) string {
	return "checkout.session:" + sessionID
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(s string) (uint, error) {
	if s == "" {
		return 0, errors.New("empty id")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// providerErrCode pulls the Stripe error code out for logs without dragging
// the full (possibly sensitive) message along.
func providerErrCode(err error) string {
	if err == nil {
		return "none"
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return string(stripeErr.Code)
	}
	return "request_failed"
}
