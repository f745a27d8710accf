package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
)

// Client wraps a dedicated Stripe API client plus the webhook signing secret.
// Constructed once from config and injected wherever Stripe is called; the
// package-global stripe.Key is never assigned.
type Client struct {
	api           *client.API
	webhookSecret string
}

func NewClient(secretKey, webhookSecret string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api, webhookSecret: webhookSecret}
}

// CheckoutParams is what a subscription-mode checkout session needs. Metadata
// is echoed back by Stripe on completion and is the sole correlation back to a
// local user/plan pair, so values must survive the round trip byte-for-byte.
type CheckoutParams struct {
	CustomerEmail string
	PriceID       string
	SuccessURL    string
	CancelURL     string
	ClientRef     string
	Metadata      map[string]string
}

func (c *Client) CreateSubscriptionCheckout(ctx context.Context, p CheckoutParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx, Metadata: p.Metadata},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),

		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},

		ClientReferenceID: stripe.String(p.ClientRef),

		// Mirror the metadata onto the subscription so later
		// customer.subscription.* events carry it too.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: p.Metadata,
		},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	return c.api.CheckoutSessions.New(params)
}

func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return c.api.CheckoutSessions.Get(id, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
}

// VerifyEvent checks the Stripe-Signature header against the signing secret
// and returns the parsed event. Any failure means the payload is untrusted and
// nothing may be applied from it.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
}
