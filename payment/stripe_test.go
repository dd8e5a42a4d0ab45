package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/irsalhamdi/learnhub/config"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
	mock "github.com/stripe/stripe-mock/param"
)

const testSecret = "whsec_test"

func newTestStripe(t *testing.T, url string, timeout time.Duration) *Stripe {
	t.Helper()
	log, _ := test.NewNullLogger()

	s, err := NewStripe(config.Stripe{
		APISecret:     "sk_test_123",
		WebhookSecret: testSecret,
		Timeout:       timeout,
		Currency:      "INR",
		SuccessURL:    "http://localhost:5173/course-progress/",
		CancelURL:     "http://localhost:5173/course-detail",
		URL:           url,
	}, log)
	require.NoError(t, err)
	return s
}

func TestNewStripeRequiresSecrets(t *testing.T) {
	log, _ := test.NewNullLogger()

	_, err := NewStripe(config.Stripe{WebhookSecret: testSecret}, log)
	assert.Error(t, err)

	_, err = NewStripe(config.Stripe{APISecret: "sk_test"}, log)
	assert.Error(t, err)
}

func TestCreateCheckoutSession(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			http.NotFound(w, r)
			return
		}
		got, _ = mock.ParseParams(r)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "cs_test_1",
			"object": "checkout.session",
			"url":    "https://checkout.stripe.test/cs_test_1",
		})
	}))
	defer srv.Close()

	s := newTestStripe(t, srv.URL, time.Second)

	sess, err := s.CreateCheckoutSession(context.Background(), Item{
		CourseID: "c-1",
		UserID:   "u-1",
		Title:    "Go in practice",
		ImageURL: "https://cdn.test/go.png",
		Amount:   499,
	})
	require.NoError(t, err)
	assert.Equal(t, Session{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, sess)

	md := got["metadata"].(map[string]any)
	assert.Equal(t, "c-1", md[MetadataCourseID])
	assert.Equal(t, "u-1", md[MetadataUserID])
	assert.Equal(t, "payment", got["mode"])
	assert.Equal(t, "http://localhost:5173/course-progress/c-1", got["success_url"])
	assert.Equal(t, "http://localhost:5173/course-detail/c-1", got["cancel_url"])

	lines := got["line_items"].(map[string]any)
	require.Len(t, lines, 1)
	for _, li := range lines {
		pd := li.(map[string]any)["price_data"].(map[string]any)
		assert.Equal(t, "49900", pd["unit_amount"])
		assert.Equal(t, "inr", pd["currency"])
	}
}

func TestCreateCheckoutSessionUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_2","object":"checkout.session"}`))
	}))
	defer srv.Close()

	s := newTestStripe(t, srv.URL, time.Second)

	_, err := s.CreateCheckoutSession(context.Background(), Item{CourseID: "c", UserID: "u", Title: "t", Amount: 1})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCreateCheckoutSessionTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(release)

	s := newTestStripe(t, srv.URL, 50*time.Millisecond)

	start := time.Now()
	_, err := s.CreateCheckoutSession(context.Background(), Item{CourseID: "c", UserID: "u", Title: "t", Amount: 1})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Less(t, time.Since(start), time.Second)
}

func signedEvent(t *testing.T, secret string, evt stripe.Event) ([]byte, string) {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func checkoutEvent(t *testing.T, metadata map[string]string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":             "cs_test_9",
		"object":         "checkout.session",
		"mode":           stripe.CheckoutSessionModePayment,
		"payment_status": "paid",
		"amount_total":   49900,
		"metadata":       metadata,
	})
	require.NoError(t, err)

	return stripe.Event{
		ID:         "evt_1",
		APIVersion: stripe.APIVersion,
		Type:       EventCheckoutCompleted,
		Data:       &stripe.EventData{Raw: raw},
	}
}

func TestVerifyEvent(t *testing.T) {
	s := newTestStripe(t, "", time.Second)
	payload, header := signedEvent(t, testSecret, checkoutEvent(t, map[string]string{
		MetadataCourseID: "c-1",
		MetadataUserID:   "u-1",
	}))

	evt, err := s.VerifyEvent(payload, header)
	require.NoError(t, err)
	require.NotNil(t, evt.Checkout)
	assert.Equal(t, EventCheckoutCompleted, evt.Type)
	assert.Equal(t, "cs_test_9", evt.Checkout.SessionID)
	assert.True(t, evt.Checkout.PaymentMode)
	assert.Equal(t, "paid", evt.Checkout.PaymentStatus)
	assert.Equal(t, int64(49900), evt.Checkout.AmountTotal)
	assert.Equal(t, "c-1", evt.Checkout.Metadata[MetadataCourseID])
	assert.Equal(t, "u-1", evt.Checkout.Metadata[MetadataUserID])
}

func TestVerifyEventRejectsForgery(t *testing.T) {
	s := newTestStripe(t, "", time.Second)
	payload, header := signedEvent(t, "whsec_attacker", checkoutEvent(t, nil))

	_, err := s.VerifyEvent(payload, header)
	assert.True(t, errors.Is(err, ErrSignature), "got %v", err)

	_, err = s.VerifyEvent(payload, "")
	assert.ErrorIs(t, err, ErrSignature)

	good, goodHeader := signedEvent(t, testSecret, checkoutEvent(t, nil))
	tampered := append([]byte{}, good...)
	tampered[len(tampered)-2] = ' '
	_, err = s.VerifyEvent(tampered, goodHeader)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestVerifyEventOtherType(t *testing.T) {
	s := newTestStripe(t, "", time.Second)
	payload, header := signedEvent(t, testSecret, stripe.Event{
		ID:         "evt_2",
		APIVersion: stripe.APIVersion,
		Type:       "payment_intent.created",
		Data:       &stripe.EventData{Raw: json.RawMessage(`{}`)},
	})

	evt, err := s.VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", evt.Type)
	assert.Nil(t, evt.Checkout)
}

func TestCheckoutSettled(t *testing.T) {
	tests := []struct {
		co   CheckoutCompleted
		want bool
	}{
		{CheckoutCompleted{PaymentMode: true, PaymentStatus: PaymentStatusPaid}, true},
		{CheckoutCompleted{PaymentMode: true, PaymentStatus: PaymentStatusNoPaymentRequired}, true},
		{CheckoutCompleted{PaymentMode: true, PaymentStatus: "unpaid"}, false},
		{CheckoutCompleted{PaymentStatus: PaymentStatusPaid}, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.co.Settled(), "%+v", tc.co)
	}
}

func TestExpireCheckoutSession(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "cs_test_1",
			"object": "checkout.session",
			"status": "expired",
		})
	}))
	defer srv.Close()

	s := newTestStripe(t, srv.URL, time.Second)

	require.NoError(t, s.ExpireCheckoutSession(context.Background(), "cs_test_1"))
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/v1/checkout/sessions/cs_test_1/expire", path)
}

func TestExpireCheckoutSessionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Only open sessions can be expired."}}`))
	}))
	defer srv.Close()

	s := newTestStripe(t, srv.URL, time.Second)

	err := s.ExpireCheckoutSession(context.Background(), "cs_test_paid")
	assert.ErrorIs(t, err, ErrUpstream)
}
