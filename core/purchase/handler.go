package purchase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/core/course"
	"github.com/irsalhamdi/learnhub/payment"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const maxWebhookBytes = 65536

type checkoutResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	OrderID string `json:"orderId,omitempty"`
}

type detailResponse struct {
	Course    course.Course `json:"course"`
	Purchased bool          `json:"purchased"`
}

func decodeCheckout(w http.ResponseWriter, r *http.Request) (CheckoutNew, error) {
	var cn CheckoutNew
	if err := web.Decode(w, r, &cn); err != nil {
		return CheckoutNew{}, weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
	}
	if err := validate.Check(cn); err != nil {
		return CheckoutNew{}, weberr.InvalidInput(err)
	}
	return cn, nil
}

func upstream(err error) error {
	if errors.Is(err, payment.ErrUpstream) {
		return weberr.Upstream(err)
	}
	return err
}

// HandleStripeCheckout opens a Stripe session for one course. A session left
// open by an earlier checkout of the same course is expired once the new one
// is recorded.
func HandleStripeCheckout(db *sqlx.DB, strp StripeGateway, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		cn, err := decodeCheckout(w, r)
		if err != nil {
			return err
		}

		c, err := checkout(ctx, db, clm.UserID, cn.CourseID)
		if err != nil {
			return err
		}

		prev, err := FetchPending(ctx, db, clm.UserID, c.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		s, err := strp.CreateCheckoutSession(ctx, item(c, clm.UserID))
		if err != nil {
			return upstream(fmt.Errorf("creating stripe session for course[%s]: %w", c.ID, err))
		}

		if _, err := prepare(ctx, db, c, clm.UserID, ProviderStripe, s.ID); err != nil {
			return err
		}

		if prev.Provider == ProviderStripe && prev.PaymentID != s.ID {
			if err := strp.ExpireCheckoutSession(ctx, prev.PaymentID); err != nil {
				log.WithFields(logrus.Fields{
					"purchase_id": prev.ID,
					"session_id":  prev.PaymentID,
					"message":     err,
				}).Warn("superseded checkout session left open")
			}
		}

		return web.Respond(ctx, w, checkoutResponse{Success: true, URL: s.URL}, http.StatusOK)
	}
}

// HandleStripeWebhook reconciles checkout sessions reported by Stripe. It
// answers 200 to every event it handled or chose to ignore, so Stripe only
// redelivers on failures.
func HandleStripeWebhook(db *sqlx.DB, strp StripeGateway, n *Notifier, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		evt, err := strp.VerifyEvent(b, r.Header.Get("Stripe-Signature"))
		if err != nil {
			if errors.Is(err, payment.ErrSignature) {
				return weberr.Unauthenticated(err)
			}
			return weberr.BadRequest(err)
		}

		fields := map[string]interface{}{
			"event_id":   evt.ID,
			"event_type": evt.Type,
		}
		if evt.Checkout == nil {
			log.WithFields(fields).Debug("ignoring stripe event")
			return web.Ack(w)
		}

		co := evt.Checkout
		fields["session_id"] = co.SessionID
		if !co.Settled() {
			log.WithFields(fields).WithField("payment_status", co.PaymentStatus).Info("checkout session not paid yet")
			return web.Ack(w)
		}

		owner, err := metadataOwner(co.Metadata)
		if err != nil {
			return weberr.BadRequest(err, weberr.WithFields(fields))
		}

		p, first, err := fulfill(ctx, db, ProviderStripe, co.SessionID, &owner)
		switch {
		case errors.Is(err, ErrPaidTwice):
			log.WithFields(fields).WithField("course_id", owner.CourseID).WithField("user_id", owner.UserID).
				Error("checkout session paid for a course already bought, refund it")
			return web.Ack(w)
		case errors.Is(err, ErrNotFound):
			return weberr.NotFound(err, weberr.WithFields(fields))
		case errors.Is(err, ErrMetadataMismatch):
			return weberr.BadRequest(err, weberr.WithFields(fields))
		case err != nil:
			return weberr.Wrap(err, weberr.WithFields(fields))
		}

		fields["purchase_id"] = p.ID
		if first {
			n.Enrolled(p)
			log.WithFields(fields).Info("purchase completed")
		} else {
			log.WithFields(fields).Info("purchase already completed")
		}

		return web.Ack(w)
	}
}

func metadataOwner(md map[string]string) (Owner, error) {
	o := Owner{
		CourseID: md[payment.MetadataCourseID],
		UserID:   md[payment.MetadataUserID],
	}
	if err := validate.CheckID(o.CourseID); err != nil {
		return Owner{}, fmt.Errorf("metadata %s: %w", payment.MetadataCourseID, err)
	}
	if err := validate.CheckID(o.UserID); err != nil {
		return Owner{}, fmt.Errorf("metadata %s: %w", payment.MetadataUserID, err)
	}
	return o, nil
}

func HandlePaypalCheckout(db *sqlx.DB, pp PaypalGateway) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		cn, err := decodeCheckout(w, r)
		if err != nil {
			return err
		}

		c, err := checkout(ctx, db, clm.UserID, cn.CourseID)
		if err != nil {
			return err
		}

		ord, err := pp.CreateOrder(ctx, item(c, clm.UserID))
		if err != nil {
			return upstream(fmt.Errorf("creating paypal order for course[%s]: %w", c.ID, err))
		}

		if _, err := prepare(ctx, db, c, clm.UserID, ProviderPaypal, ord.ID); err != nil {
			return err
		}

		resp := checkoutResponse{Success: true, URL: ord.ApproveURL, OrderID: ord.ID}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandlePaypalCapture captures an approved order and enrolls its buyer.
// Capturing an order that was already fulfilled succeeds without calling
// PayPal again.
func HandlePaypalCapture(db *sqlx.DB, pp PaypalGateway, n *Notifier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		p, err := FetchByPaymentID(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"order_id": id}))
			}
			return err
		}
		if p.UserID != clm.UserID || p.Provider != ProviderPaypal {
			return weberr.Forbidden(fmt.Errorf("order[%s] does not belong to user[%s]", id, clm.UserID))
		}

		if p.Status == Pending {
			if err := pp.CaptureOrder(ctx, id); err != nil {
				return upstream(fmt.Errorf("capturing paypal order[%s]: %w", id, err))
			}
		}

		p, first, err := fulfill(ctx, db, ProviderPaypal, id, nil)
		if err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}
		if first {
			n.Enrolled(p)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleShowWithStatus returns a course together with whether the caller
// bought it. Lecture videos stay hidden until then.
func HandleShowWithStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "course_id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		c, err := course.FetchDetail(ctx, db, id)
		if err != nil {
			if errors.Is(err, course.ErrNotFound) {
				return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"course_id": id}))
			}
			return err
		}

		owner := c.OwnedBy(clm.UserID)
		if !c.Published && !owner {
			return weberr.NotFound(course.ErrNotFound, weberr.WithFields(map[string]interface{}{"course_id": id}))
		}

		purchased, err := HasCompleted(ctx, db, clm.UserID, id)
		if err != nil {
			return err
		}
		if !purchased && !owner {
			c.Lectures = course.Redact(c.Lectures)
		}

		return web.Respond(ctx, w, detailResponse{Course: c, Purchased: purchased}, http.StatusOK)
	}
}

func HandleListSales(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ss, err := QuerySales(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, report(ss), http.StatusOK)
	}
}

func HandleListByUser(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "user_id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		if !claims.IsUser(ctx, id) {
			return weberr.Forbidden(fmt.Errorf("purchases of user[%s] are not visible to the caller", id))
		}

		ps, err := QueryByUser(ctx, db, id)
		if err != nil {
			return err
		}
		if len(ps) == 0 {
			return weberr.NotFound(ErrNoPurchases, weberr.WithFields(map[string]interface{}{"user_id": id}))
		}

		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}
