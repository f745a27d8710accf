package stripewebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v75"

	"comment-dashboard/internal/api/billing"
)

const maxPayloadBytes = 65536

// Verifier checks the Stripe-Signature header. Verification is pure; it runs
// before anything can mutate state.
type Verifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// Ledger dedupes provider event ids. Webhook delivery is at-least-once and
// unordered, so every event id passes through here exactly once.
type Ledger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}

// Reconciler is the billing service surface the webhook drives.
type Reconciler interface {
	ApplyCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) error
	ApplySubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error
	ApplySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error
}

type Handler struct {
	verifier Verifier
	ledger   Ledger
	svc      Reconciler
}

func NewHandler(verifier Verifier, ledger Ledger, svc Reconciler) *Handler {
	return &Handler{verifier: verifier, ledger: ledger, svc: svc}
}

// HandleWebhook handles POST /webhook. Unauthenticated but signature-verified:
// any verification or parse failure is terminal for the request (400, zero
// mutation). Failures past verification return 500 so Stripe redelivers.
func (h *Handler) HandleWebhook(c *gin.Context) {
	payload, err := readBody(c, maxPayloadBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := h.verifier.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Warn().Err(err).Msg("stripe signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	ctx := c.Request.Context()

	seen, err := h.ledger.Seen(ctx, event.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ledger lookup failed"})
		return
	}
	if seen {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse session"})
			return
		}
		h.apply(c, event, func() error { return h.svc.ApplyCheckoutCompleted(ctx, &session) })

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
			return
		}
		h.apply(c, event, func() error { return h.svc.ApplySubscriptionUpdated(ctx, &sub) })

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
			return
		}
		h.apply(c, event, func() error { return h.svc.ApplySubscriptionDeleted(ctx, &sub) })

	default:
		// Acknowledge unknown events to stop retries.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func (h *Handler) apply(c *gin.Context, event stripe.Event, fn func() error) {
	ctx := c.Request.Context()

	if err := fn(); err != nil {
		if isMalformed(err) {
			// Non-retryable: the payload will never get better.
			log.Warn().Err(err).Str("event_id", event.ID).Str("event_type", string(event.Type)).
				Msg("webhook payload rejected")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Retryable: leave the event unmarked so redelivery re-applies it.
		log.Error().Err(err).Str("event_id", event.ID).Str("event_type", string(event.Type)).
			Msg("webhook apply failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	if err := h.ledger.MarkProcessed(ctx, event.ID, string(event.Type)); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("failed to record processed event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func isMalformed(err error) bool {
	return errors.Is(err, billing.ErrMalformedPayload) || errors.Is(err, billing.ErrPlanNotFound)
}

func readBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
