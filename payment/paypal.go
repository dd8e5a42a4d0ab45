package payment

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/irsalhamdi/learnhub/config"
	"github.com/plutov/paypal/v4"
)

// Paypal creates and captures PayPal orders for a single course.
type Paypal struct {
	client   *paypal.Client
	currency string
	timeout  time.Duration
}

type Order struct {
	ID         string
	ApproveURL string
}

func NewPaypal(ctx context.Context, cfg config.Paypal) (*Paypal, error) {
	pp, err := paypal.NewClient(cfg.ClientID, cfg.Secret, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("building the paypal client: %w", err)
	}
	pp.SetHTTPClient(&http.Client{Timeout: cfg.Timeout})

	if _, err := pp.GetAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("getting the first paypal access token: %w", err)
	}

	return &Paypal{client: pp, currency: cfg.Currency, timeout: cfg.Timeout}, nil
}

func (p *Paypal) CreateOrder(ctx context.Context, it Item) (Order, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	value := strconv.Itoa(it.Amount)
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: it.CourseID,
		CustomID:    it.UserID,
		Items: []paypal.Item{{
			Quantity:   "1",
			Name:       it.Title,
			UnitAmount: &paypal.Money{Currency: p.currency, Value: value},
		}},
		Amount: &paypal.PurchaseUnitAmount{
			Currency: p.currency,
			Value:    value,
			Breakdown: &paypal.PurchaseUnitAmountBreakdown{
				ItemTotal: &paypal.Money{Currency: p.currency, Value: value},
			},
		},
	}}

	ord, err := p.client.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
	if err != nil {
		return Order{}, fmt.Errorf("%w: creating paypal order: %v", ErrUpstream, err)
	}
	if ord.ID == "" {
		return Order{}, fmt.Errorf("%w: paypal returned an order without id", ErrUpstream)
	}

	out := Order{ID: ord.ID}
	for _, l := range ord.Links {
		if l.Rel == "approve" {
			out.ApproveURL = l.Href
		}
	}
	return out, nil
}

// CaptureOrder settles an approved order. Anything but COMPLETED is an
// upstream failure.
func (p *Paypal) CaptureOrder(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CaptureOrder(ctx, id, paypal.CaptureOrderRequest{})
	if err != nil {
		return fmt.Errorf("%w: capturing paypal order[%s]: %v", ErrUpstream, id, err)
	}

	if resp.Status != "COMPLETED" {
		return fmt.Errorf("%w: captured order[%s] with status[%s] different from 'COMPLETED'", ErrUpstream, id, resp.Status)
	}
	return nil
}
