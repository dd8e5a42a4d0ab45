package purchase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/irsalhamdi/learnhub/api/background"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/course"
	"github.com/irsalhamdi/learnhub/core/user"
	"github.com/irsalhamdi/learnhub/database"
	"github.com/irsalhamdi/learnhub/email"
	"github.com/irsalhamdi/learnhub/events"
	"github.com/irsalhamdi/learnhub/payment"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
)

// checkout resolves the course a user asked to pay for. Every failure is
// already a request error.
func checkout(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (course.Course, error) {
	if err := validate.CheckID(courseID); err != nil {
		return course.Course{}, weberr.InvalidInput(err)
	}

	c, err := course.Fetch(ctx, db, courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return course.Course{}, weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"course_id": courseID}))
		}
		return course.Course{}, err
	}
	if !c.Published {
		return course.Course{}, weberr.NotFound(course.ErrNotFound, weberr.WithFields(map[string]interface{}{"course_id": courseID}))
	}
	if err := purchasable(c); err != nil {
		return course.Course{}, err
	}

	done, err := HasCompleted(ctx, db, userID, courseID)
	if err != nil {
		return course.Course{}, err
	}
	if done {
		return course.Course{}, weberr.Conflict(ErrAlreadyPurchased)
	}

	return c, nil
}

// purchasable rejects courses the payment providers cannot charge for.
func purchasable(c course.Course) error {
	if c.Price <= 0 {
		return weberr.PreconditionFailed(ErrNotForSale, weberr.WithFields(map[string]interface{}{"course_id": c.ID}))
	}
	return nil
}

func item(c course.Course, userID string) payment.Item {
	return payment.Item{
		CourseID: c.ID,
		UserID:   userID,
		Title:    c.Title,
		ImageURL: c.ThumbnailURL,
		Amount:   c.Price,
	}
}

// prepare records the pending purchase once the provider accepted the payment.
func prepare(ctx context.Context, db sqlx.ExtContext, c course.Course, userID, provider, paymentID string) (Purchase, error) {
	now := time.Now().UTC()
	p := Purchase{
		ID:        validate.GenerateID(),
		CourseID:  c.ID,
		UserID:    userID,
		Amount:    c.Price,
		Status:    Pending,
		Provider:  provider,
		PaymentID: paymentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	p, err := UpsertPending(ctx, db, p)
	if err != nil {
		return Purchase{}, fmt.Errorf("creating the purchase bound to payment[%s]: %w", paymentID, err)
	}
	return p, nil
}

// fulfill completes the purchase bound to paymentID and enrolls its user in
// one transaction. When owner is set it must match the stored purchase, and a
// payment from a superseded checkout is moved onto the owner's pending
// purchase. first is true only for the call that moved the purchase out of
// pending.
func fulfill(ctx context.Context, db *sqlx.DB, provider, paymentID string, owner *Owner) (p Purchase, first bool, err error) {
	err = database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
		p, err = FetchByPaymentID(ctx, tx, paymentID)
		switch {
		case errors.Is(err, ErrNotFound) && owner != nil:
			if p, err = rebind(ctx, tx, provider, paymentID, *owner); err != nil {
				return err
			}
		case err != nil:
			return err
		case owner != nil && (owner.CourseID != p.CourseID || owner.UserID != p.UserID):
			return ErrMetadataMismatch
		}

		now := time.Now().UTC()
		if first, err = Complete(ctx, tx, p.ID, now); err != nil {
			return err
		}

		if _, err = course.Enroll(ctx, tx, p.UserID, p.CourseID, now); err != nil {
			return err
		}

		p.Status = Completed
		if first {
			p.UpdatedAt = now
		}
		return nil
	})

	if err != nil {
		return Purchase{}, false, fmt.Errorf("fulfilling the purchase bound to payment[%s]: %w", paymentID, err)
	}
	return p, first, nil
}

// rebind attaches a payment the purchase no longer references to the
// owner's pending purchase. A later checkout replaced its payment id.
func rebind(ctx context.Context, tx sqlx.ExtContext, provider, paymentID string, o Owner) (Purchase, error) {
	p, err := FetchByOwner(ctx, tx, o.UserID, o.CourseID)
	if err != nil {
		return Purchase{}, err
	}
	if p.Status != Pending {
		return Purchase{}, ErrPaidTwice
	}

	now := time.Now().UTC()
	if err := Rebind(ctx, tx, p.ID, provider, paymentID, now); err != nil {
		return Purchase{}, err
	}

	p.Provider = provider
	p.PaymentID = paymentID
	p.UpdatedAt = now
	return p, nil
}

// Notifier announces new enrollments: a receipt to the student and a
// course.enrolled event. Work runs in the background after the response.
type Notifier struct {
	DB         *sqlx.DB
	Mailer     email.Mailer
	Events     events.Publisher
	Background *background.Background

	// CourseURL is prefixed to the course id in the receipt link.
	CourseURL string
}

func (n *Notifier) Enrolled(p Purchase) {
	if n == nil {
		return
	}

	n.Background.Go("enrollment-notify", func(ctx context.Context) error {
		evt := events.Event{
			Type:       events.TypeCourseEnrolled,
			UserID:     p.UserID,
			CourseID:   p.CourseID,
			PurchaseID: p.ID,
			Amount:     p.Amount,
			OccurredAt: p.UpdatedAt,
		}
		if err := n.Events.Publish(ctx, evt); err != nil {
			return fmt.Errorf("publishing enrollment of purchase[%s]: %w", p.ID, err)
		}

		u, err := user.Fetch(ctx, n.DB, p.UserID)
		if err != nil {
			return err
		}
		c, err := course.Fetch(ctx, n.DB, p.CourseID)
		if err != nil {
			return err
		}

		msg, err := email.EnrollmentMessage(mail.Address{Name: u.Name, Address: u.Email}, email.Enrollment{
			Name:        u.Name,
			CourseTitle: c.Title,
			Amount:      p.Amount,
			CourseURL:   n.CourseURL + "/" + c.ID,
		})
		if err != nil {
			return err
		}
		return n.Mailer.Send(ctx, msg)
	})
}
