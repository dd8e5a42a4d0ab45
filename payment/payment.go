// Package payment wraps the payment providers behind explicitly constructed
// clients. Nothing here reads process-wide state.
package payment

import "errors"

var (
	// ErrUpstream marks a provider that failed or answered with something
	// unusable.
	ErrUpstream = errors.New("payment provider error")

	// ErrSignature marks a webhook payload that failed verification.
	ErrSignature = errors.New("invalid webhook signature")
)

// Item is the single course being paid for.
type Item struct {
	CourseID string
	UserID   string
	Title    string
	ImageURL string
	Amount   int
}

// Session is a hosted checkout the user is redirected to.
type Session struct {
	ID  string
	URL string
}

const (
	MetadataCourseID = "courseId"
	MetadataUserID   = "userId"

	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"

	PaymentStatusPaid              = "paid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// Event is a verified provider notification.
type Event struct {
	ID   string
	Type string

	// Checkout is set for checkout.session.completed and
	// checkout.session.async_payment_succeeded events.
	Checkout *CheckoutCompleted
}

type CheckoutCompleted struct {
	SessionID     string
	PaymentMode   bool
	PaymentStatus string
	AmountTotal   int64
	Metadata      map[string]string
}

// Settled reports whether the money of a payment-mode session was collected.
// Delayed methods report "unpaid" until their async_payment_succeeded event.
func (c CheckoutCompleted) Settled() bool {
	if !c.PaymentMode {
		return false
	}
	return c.PaymentStatus == PaymentStatusPaid || c.PaymentStatus == PaymentStatusNoPaymentRequired
}
