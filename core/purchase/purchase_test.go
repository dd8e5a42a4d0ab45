package purchase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/core/course"
	"github.com/irsalhamdi/learnhub/payment"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStripe struct {
	evt payment.Event
	err error

	sessions int
	expired  []string
}

func (f *fakeStripe) CreateCheckoutSession(ctx context.Context, it payment.Item) (payment.Session, error) {
	f.sessions++
	return payment.Session{ID: "cs_1", URL: "https://checkout.test/cs_1"}, nil
}

func (f *fakeStripe) ExpireCheckoutSession(ctx context.Context, id string) error {
	f.expired = append(f.expired, id)
	return nil
}

func (f *fakeStripe) VerifyEvent(payload []byte, signature string) (payment.Event, error) {
	return f.evt, f.err
}

func withUser(r *http.Request, id string) *http.Request {
	return r.WithContext(claims.Set(r.Context(), claims.Claims{UserID: id, Role: claims.RoleStudent}))
}

func TestCheckoutRejectsBeforeTouchingStorage(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		auth   bool
		status int
	}{
		{name: "anonymous", body: `{"courseId":"x"}`, status: http.StatusUnauthorized},
		{name: "malformed id", body: `{"courseId":"not-an-id"}`, auth: true, status: http.StatusBadRequest},
		{name: "missing id", body: `{}`, auth: true, status: http.StatusBadRequest},
		{name: "unknown field", body: `{"course":"x"}`, auth: true, status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			strp := &fakeStripe{}
			log, _ := test.NewNullLogger()
			h := HandleStripeCheckout(nil, strp, log)

			r := httptest.NewRequest(http.MethodPost, "/purchase/checkout/create-checkout-session", strings.NewReader(tc.body))
			if tc.auth {
				r = withUser(r, validate.GenerateID())
			}

			err := h(r.Context(), httptest.NewRecorder(), r)
			require.Error(t, err)
			assert.Equal(t, tc.status, weberr.Status(err))
			assert.Zero(t, strp.sessions, "no provider session may be opened")
		})
	}
}

func TestWebhookWithoutMutation(t *testing.T) {
	courseID := validate.GenerateID()
	paid := func(md map[string]string) payment.Event {
		return payment.Event{
			ID:   "evt_1",
			Type: payment.EventCheckoutCompleted,
			Checkout: &payment.CheckoutCompleted{
				SessionID:     "cs_1",
				PaymentMode:   true,
				PaymentStatus: payment.PaymentStatusPaid,
				Metadata:      md,
			},
		}
	}

	tests := []struct {
		name   string
		strp   *fakeStripe
		status int
	}{
		{
			name:   "bad signature",
			strp:   &fakeStripe{err: payment.ErrSignature},
			status: http.StatusBadRequest,
		},
		{
			name:   "other event type",
			strp:   &fakeStripe{evt: payment.Event{ID: "evt_2", Type: "customer.created"}},
			status: http.StatusOK,
		},
		{
			name: "unpaid session",
			strp: &fakeStripe{evt: payment.Event{
				ID:   "evt_3",
				Type: payment.EventCheckoutCompleted,
				Checkout: &payment.CheckoutCompleted{
					SessionID:     "cs_1",
					PaymentMode:   true,
					PaymentStatus: "unpaid",
				},
			}},
			status: http.StatusOK,
		},
		{
			name:   "subscription session",
			strp:   &fakeStripe{evt: payment.Event{ID: "evt_4", Type: payment.EventCheckoutCompleted, Checkout: &payment.CheckoutCompleted{SessionID: "cs_1"}}},
			status: http.StatusOK,
		},
		{
			name:   "missing metadata",
			strp:   &fakeStripe{evt: paid(nil)},
			status: http.StatusBadRequest,
		},
		{
			name: "malformed metadata",
			strp: &fakeStripe{evt: paid(map[string]string{
				payment.MetadataCourseID: courseID,
				payment.MetadataUserID:   "u-1",
			})},
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, _ := test.NewNullLogger()
			h := HandleStripeWebhook(nil, tc.strp, nil, log)

			r := httptest.NewRequest(http.MethodPost, "/purchase/webhook", strings.NewReader(`{}`))
			w := httptest.NewRecorder()

			err := h(r.Context(), w, r)
			if tc.status == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Zero(t, w.Body.Len())
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.status, weberr.Status(err))
		})
	}
}

func TestMetadataOwner(t *testing.T) {
	courseID, userID := validate.GenerateID(), validate.GenerateID()

	o, err := metadataOwner(map[string]string{
		payment.MetadataCourseID: courseID,
		payment.MetadataUserID:   userID,
	})
	require.NoError(t, err)
	assert.Equal(t, Owner{CourseID: courseID, UserID: userID}, o)

	_, err = metadataOwner(map[string]string{payment.MetadataCourseID: courseID})
	assert.ErrorIs(t, err, validate.ErrInvalidID)
}

func TestReport(t *testing.T) {
	sales := []Sale{
		{Purchase: Purchase{ID: "p1", Amount: 499}},
		{Purchase: Purchase{ID: "p2", Amount: 1}},
	}

	got := report(sales)
	want := SalesReport{PurchasedCourse: sales, TotalSales: 2, TotalRevenue: 500}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	empty := report(nil)
	assert.NotNil(t, empty.PurchasedCourse)
	assert.Zero(t, empty.TotalRevenue)
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	n.Enrolled(Purchase{ID: "p1"})
}

func TestPurchasable(t *testing.T) {
	assert.NoError(t, purchasable(course.Course{ID: "c1", Price: 499}))

	err := purchasable(course.Course{ID: "c2"})
	assert.ErrorIs(t, err, ErrNotForSale)
	assert.Equal(t, http.StatusPreconditionFailed, weberr.Status(err))
}
