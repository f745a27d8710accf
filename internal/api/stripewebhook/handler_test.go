package stripewebhooks

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"

	"comment-dashboard/internal/api/billing"
	stripeinfra "comment-dashboard/internal/infra/stripe"
)

const testSecret = "whsec_test_secret"

type memLedger struct {
	seen map[string]string
}

func newMemLedger() *memLedger {
	return &memLedger{seen: map[string]string{}}
}

func (m *memLedger) Seen(_ context.Context, eventID string) (bool, error) {
	_, ok := m.seen[eventID]
	return ok, nil
}

func (m *memLedger) MarkProcessed(_ context.Context, eventID, eventType string) error {
	m.seen[eventID] = eventType
	return nil
}

type recordingReconciler struct {
	completed []string
	updated   []string
	deleted   []string
	err       error
}

func (r *recordingReconciler) ApplyCheckoutCompleted(_ context.Context, sess *stripe.CheckoutSession) error {
	if r.err != nil {
		return r.err
	}
	r.completed = append(r.completed, sess.ID)
	return nil
}

func (r *recordingReconciler) ApplySubscriptionUpdated(_ context.Context, sub *stripe.Subscription) error {
	if r.err != nil {
		return r.err
	}
	r.updated = append(r.updated, sub.ID)
	return nil
}

func (r *recordingReconciler) ApplySubscriptionDeleted(_ context.Context, sub *stripe.Subscription) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, sub.ID)
	return nil
}

func newTestRouter(rec *recordingReconciler, ledger *memLedger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	verifier := stripeinfra.NewClient("sk_test_x", testSecret)
	h := NewHandler(verifier, ledger, rec)
	r := gin.New()
	r.POST("/webhook", h.HandleWebhook)
	return r
}

// signedRequest builds a webhook POST with a real Stripe-Signature header so
// the verification path runs for real.
func signedRequest(t *testing.T, payload []byte, secret string) *http.Request {
	t.Helper()
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, secret)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%x", ts.Unix(), sig))
	return req
}

func eventPayload(id, eventType, objectJSON string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"data":{"object":%s}}`, id, eventType, objectJSON))
}

func TestWebhookInvalidSignature(t *testing.T) {
	rec := &recordingReconciler{}
	ledger := newMemLedger()
	r := newTestRouter(rec, ledger)

	payload := eventPayload("evt_1", "checkout.session.completed", `{"id":"cs_1"}`)

	// signed with the wrong secret
	req := signedRequest(t, payload, "whsec_wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.completed)
	assert.Empty(t, ledger.seen)
}

func TestWebhookMissingSignature(t *testing.T) {
	rec := &recordingReconciler{}
	r := newTestRouter(rec, newMemLedger())

	payload := eventPayload("evt_1", "checkout.session.completed", `{"id":"cs_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.completed)
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	rec := &recordingReconciler{}
	ledger := newMemLedger()
	r := newTestRouter(rec, ledger)

	payload := eventPayload("evt_1", "checkout.session.completed",
		`{"id":"cs_1","metadata":{"user_id":"7","plan_id":"2"}}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, payload, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.completed, 1)
	assert.Equal(t, "cs_1", rec.completed[0])
	assert.Contains(t, ledger.seen, "evt_1")
}

func TestWebhookDuplicateEvent(t *testing.T) {
	rec := &recordingReconciler{}
	ledger := newMemLedger()
	r := newTestRouter(rec, ledger)

	payload := eventPayload("evt_dup", "checkout.session.completed", `{"id":"cs_1"}`)

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, signedRequest(t, payload, testSecret))
	assert.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, signedRequest(t, payload, testSecret))
	assert.Equal(t, http.StatusOK, w2.Code)

	assert.Len(t, rec.completed, 1)
}

func TestWebhookSubscriptionDeleted(t *testing.T) {
	rec := &recordingReconciler{}
	ledger := newMemLedger()
	r := newTestRouter(rec, ledger)

	payload := eventPayload("evt_del", "customer.subscription.deleted",
		`{"id":"sub_1","status":"canceled","customer":{"id":"cus_1"}}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, payload, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.deleted, 1)
	assert.Equal(t, "sub_1", rec.deleted[0])
}

func TestWebhookSubscriptionUpdated(t *testing.T) {
	rec := &recordingReconciler{}
	r := newTestRouter(rec, newMemLedger())

	payload := eventPayload("evt_upd", "customer.subscription.updated",
		`{"id":"sub_1","status":"active"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, payload, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rec.updated, 1)
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	rec := &recordingReconciler{}
	ledger := newMemLedger()
	r := newTestRouter(rec, ledger)

	payload := eventPayload("evt_x", "invoice.paid", `{"id":"in_1"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, payload, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rec.completed)
	assert.Empty(t, rec.updated)
	assert.Empty(t, rec.deleted)
}

func TestWebhookMalformedCorrelationRejected(t *testing.T) {
	rec := &recordingReconciler{err: billing.ErrMalformedPayload}
	ledger := newMemLedger()
	r := newTestRouter(rec, ledger)

	payload := eventPayload("evt_bad", "checkout.session.completed", `{"id":"cs_1"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, payload, testSecret))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	// not marked processed: the 400 is terminal but recorded nowhere
	assert.Empty(t, ledger.seen)
}

func TestWebhookRetryableFailureLeavesEventUnmarked(t *testing.T) {
	rec := &recordingReconciler{err: fmt.Errorf("db down")}
	ledger := newMemLedger()
	r := newTestRouter(rec, ledger)

	payload := eventPayload("evt_retry", "customer.subscription.updated", `{"id":"sub_1","status":"active"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, payload, testSecret))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, ledger.seen)
}
