package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/irsalhamdi/learnhub/config"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// Stripe creates checkout sessions and verifies webhook events.
type Stripe struct {
	api           *stripecl.API
	webhookSecret string
	timeout       time.Duration
	currency      string
	successURL    string
	cancelURL     string
}

func NewStripe(cfg config.Stripe, log logrus.FieldLogger) (*Stripe, error) {
	if cfg.APISecret == "" {
		return nil, errors.New("stripe api secret is not configured")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("stripe webhook secret is not configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backend := func(kind stripe.SupportedBackend, url string) stripe.Backend {
		bc := &stripe.BackendConfig{
			HTTPClient:        &http.Client{Timeout: timeout},
			LeveledLogger:     log,
			MaxNetworkRetries: stripe.Int64(0),
		}
		if url != "" {
			bc.URL = stripe.String(url)
		}
		return stripe.GetBackendWithConfig(kind, bc)
	}

	api := &stripecl.API{}
	api.Init(cfg.APISecret, &stripe.Backends{
		API:     backend(stripe.APIBackend, cfg.URL),
		Connect: backend(stripe.ConnectBackend, ""),
		Uploads: backend(stripe.UploadsBackend, ""),
	})

	return &Stripe{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		timeout:       timeout,
		currency:      strings.ToLower(cfg.Currency),
		successURL:    strings.TrimSuffix(cfg.SuccessURL, "/"),
		cancelURL:     strings.TrimSuffix(cfg.CancelURL, "/"),
	}, nil
}

// CreateCheckoutSession opens a hosted payment page for one course. The
// session carries the course and user ids as metadata for the webhook.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, it Item) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := s.sessionParams(it)
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("%w: creating stripe session: %v", ErrUpstream, err)
	}

	if sess.ID == "" || sess.URL == "" {
		return Session{}, fmt.Errorf("%w: stripe returned a session without id or url", ErrUpstream)
	}

	return Session{ID: sess.ID, URL: sess.URL}, nil
}

// ExpireCheckoutSession closes an open session so it can no longer be paid.
func (s *Stripe) ExpireCheckoutSession(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	if _, err := s.api.CheckoutSessions.Expire(id, params); err != nil {
		return fmt.Errorf("%w: expiring stripe session[%s]: %v", ErrUpstream, id, err)
	}
	return nil
}

func (s *Stripe) sessionParams(it Item) *stripe.CheckoutSessionParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(it.Title),
	}
	if it.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{it.ImageURL})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(s.successURL + "/" + it.CourseID),
		CancelURL:          stripe.String(s.cancelURL + "/" + it.CourseID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(s.currency),
				UnitAmount:  stripe.Int64(int64(it.Amount) * 100),
				ProductData: product,
			},
		}},
	}
	params.AddMetadata(MetadataCourseID, it.CourseID)
	params.AddMetadata(MetadataUserID, it.UserID)

	return params
}

// VerifyEvent checks the Stripe-Signature header against the webhook secret
// before decoding anything from the payload.
func (s *Stripe) VerifyEvent(payload []byte, signature string) (Event, error) {
	if signature == "" {
		return Event{}, fmt.Errorf("%w: missing signature header", ErrSignature)
	}

	evt, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	out := Event{ID: evt.ID, Type: string(evt.Type)}
	if out.Type != EventCheckoutCompleted && out.Type != EventAsyncPaymentSucceeded {
		return out, nil
	}

	if evt.Data == nil {
		return Event{}, errors.New("checkout event without data")
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return Event{}, fmt.Errorf("decoding checkout session: %w", err)
	}

	out.Checkout = &CheckoutCompleted{
		SessionID:     sess.ID,
		PaymentMode:   sess.Mode == stripe.CheckoutSessionModePayment,
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Metadata:      sess.Metadata,
	}
	return out, nil
}
