package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/irsalhamdi/learnhub/payment"
)

var (
	ErrNotFound         = errors.New("purchase not found")
	ErrAlreadyPurchased = errors.New("course already purchased")
	ErrMetadataMismatch = errors.New("event metadata does not match the purchase")
	ErrNoPurchases      = errors.New("no purchases found for this user")
	ErrNotForSale       = errors.New("course has no price to charge")
	ErrPaidTwice        = errors.New("payment received for a course the user already bought")
)

type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
)

const (
	ProviderStripe = "stripe"
	ProviderPaypal = "paypal"
)

// Purchase binds one user to one course through one provider payment. At
// most one row per (user, course) is pending and at most one is completed.
type Purchase struct {
	ID        string    `json:"id" db:"purchase_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Amount    int       `json:"amount" db:"amount"`
	Status    Status    `json:"status" db:"status"`
	Provider  string    `json:"provider" db:"provider"`
	PaymentID string    `json:"paymentId" db:"payment_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CheckoutNew struct {
	CourseID string `json:"courseId" validate:"required"`
}

type SaleCourse struct {
	ID           string `json:"id" db:"course_id"`
	Title        string `json:"title" db:"title"`
	Price        int    `json:"price" db:"price"`
	ThumbnailURL string `json:"thumbnailUrl" db:"thumbnail_url"`
}

// Sale is a completed purchase with the course it paid for.
type Sale struct {
	Purchase
	Course SaleCourse `json:"course" db:"course"`
}

type SalesReport struct {
	PurchasedCourse []Sale `json:"purchasedCourse"`
	TotalSales      int    `json:"totalSales"`
	TotalRevenue    int    `json:"totalRevenue"`
}

func report(sales []Sale) SalesReport {
	rep := SalesReport{PurchasedCourse: sales, TotalSales: len(sales)}
	if rep.PurchasedCourse == nil {
		rep.PurchasedCourse = []Sale{}
	}
	for _, s := range sales {
		rep.TotalRevenue += s.Amount
	}
	return rep
}

// Owner is the (course, user) pair a provider echoes back with a payment.
type Owner struct {
	CourseID string
	UserID   string
}

// StripeGateway is the part of the Stripe client the handlers need.
type StripeGateway interface {
	CreateCheckoutSession(ctx context.Context, it payment.Item) (payment.Session, error)
	ExpireCheckoutSession(ctx context.Context, id string) error
	VerifyEvent(payload []byte, signature string) (payment.Event, error)
}

type PaypalGateway interface {
	CreateOrder(ctx context.Context, it payment.Item) (payment.Order, error)
	CaptureOrder(ctx context.Context, id string) error
}
