package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/learnhub/database"
	"github.com/jmoiron/sqlx"
)

// UpsertPending stores p as the pending purchase of its (user, course) pair.
// An existing pending row is refreshed with p's amount, provider and payment
// id; the stored row is returned.
func UpsertPending(ctx context.Context, db sqlx.ExtContext, p Purchase) (Purchase, error) {
	const q = `
	INSERT INTO purchases
		(purchase_id, course_id, user_id, amount, status, provider, payment_id, created_at, updated_at)
	VALUES
		(:purchase_id, :course_id, :user_id, :amount, 'pending', :provider, :payment_id, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) WHERE status = 'pending'
	DO UPDATE SET
		amount = EXCLUDED.amount,
		provider = EXCLUDED.provider,
		payment_id = EXCLUDED.payment_id,
		updated_at = EXCLUDED.updated_at
	RETURNING *`

	var out Purchase
	if err := database.NamedQueryStruct(ctx, db, q, p, &out); err != nil {
		return Purchase{}, fmt.Errorf("upserting pending purchase of course[%s] for user[%s]: %w", p.CourseID, p.UserID, err)
	}
	return out, nil
}

// FetchByPaymentID loads the purchase bound to a provider payment and locks
// the row until the surrounding transaction ends.
func FetchByPaymentID(ctx context.Context, db sqlx.ExtContext, paymentID string) (Purchase, error) {
	const q = `SELECT * FROM purchases WHERE payment_id = :payment_id FOR UPDATE`

	var p Purchase
	if err := database.NamedQueryStruct(ctx, db, q, map[string]any{"payment_id": paymentID}, &p); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, fmt.Errorf("selecting purchase bound to payment[%s]: %w", paymentID, err)
	}
	return p, nil
}

// FetchPending loads the open purchase of a (user, course) pair.
func FetchPending(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (Purchase, error) {
	const q = `
	SELECT * FROM purchases
	WHERE user_id = :user_id AND course_id = :course_id AND status = 'pending'`

	var p Purchase
	args := map[string]any{"user_id": userID, "course_id": courseID}
	if err := database.NamedQueryStruct(ctx, db, q, args, &p); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, fmt.Errorf("selecting pending purchase of course[%s] for user[%s]: %w", courseID, userID, err)
	}
	return p, nil
}

// FetchByOwner locks the purchase of a (user, course) pair, preferring the
// pending one over a completed one.
func FetchByOwner(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (Purchase, error) {
	const q = `
	SELECT * FROM purchases
	WHERE user_id = :user_id AND course_id = :course_id
	ORDER BY status = 'pending' DESC
	LIMIT 1
	FOR UPDATE`

	var p Purchase
	args := map[string]any{"user_id": userID, "course_id": courseID}
	if err := database.NamedQueryStruct(ctx, db, q, args, &p); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, fmt.Errorf("selecting purchase of course[%s] for user[%s]: %w", courseID, userID, err)
	}
	return p, nil
}

// Rebind points a pending purchase at another provider payment.
func Rebind(ctx context.Context, db sqlx.ExtContext, id, provider, paymentID string, now time.Time) error {
	const q = `
	UPDATE purchases SET
		provider = :provider,
		payment_id = :payment_id,
		updated_at = :updated_at
	WHERE purchase_id = :purchase_id AND status = 'pending'`

	args := map[string]any{
		"purchase_id": id,
		"provider":    provider,
		"payment_id":  paymentID,
		"updated_at":  now,
	}
	n, err := database.NamedExecRows(ctx, db, q, args)
	if err != nil {
		return fmt.Errorf("rebinding purchase[%s] to payment[%s]: %w", id, paymentID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete moves a pending purchase to completed. It reports false when the
// purchase had already left the pending state.
func Complete(ctx context.Context, db sqlx.ExtContext, id string, now time.Time) (bool, error) {
	const q = `
	UPDATE purchases SET
		status = 'completed',
		updated_at = :updated_at
	WHERE purchase_id = :purchase_id AND status = 'pending'`

	n, err := database.NamedExecRows(ctx, db, q, map[string]any{"purchase_id": id, "updated_at": now})
	if err != nil {
		return false, fmt.Errorf("completing purchase[%s]: %w", id, err)
	}
	return n == 1, nil
}

func HasCompleted(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (bool, error) {
	const q = `
	SELECT EXISTS (
		SELECT 1 FROM purchases
		WHERE user_id = :user_id AND course_id = :course_id AND status = 'completed'
	)`

	var ok bool
	args := map[string]any{"user_id": userID, "course_id": courseID}
	if err := database.NamedQueryStruct(ctx, db, q, args, &ok); err != nil {
		return false, fmt.Errorf("checking purchase of course[%s] by user[%s]: %w", courseID, userID, err)
	}
	return ok, nil
}

// QuerySales returns the completed purchases of the courses created by
// creatorID, newest first.
func QuerySales(ctx context.Context, db sqlx.ExtContext, creatorID string) ([]Sale, error) {
	const q = `
	SELECT
		p.*,
		c.course_id AS "course.course_id",
		c.title AS "course.title",
		c.price AS "course.price",
		c.thumbnail_url AS "course.thumbnail_url"
	FROM purchases p
	JOIN courses c ON c.course_id = p.course_id
	WHERE p.status = 'completed' AND c.creator_id = :creator_id
	ORDER BY p.updated_at DESC`

	var ss []Sale
	if err := database.NamedQuerySlice(ctx, db, q, map[string]any{"creator_id": creatorID}, &ss); err != nil {
		return nil, fmt.Errorf("selecting sales of creator[%s]: %w", creatorID, err)
	}
	return ss, nil
}

func QueryByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Purchase, error) {
	const q = `
	SELECT * FROM purchases
	WHERE user_id = :user_id
	ORDER BY created_at DESC`

	var ps []Purchase
	if err := database.NamedQuerySlice(ctx, db, q, map[string]any{"user_id": userID}, &ps); err != nil {
		return nil, fmt.Errorf("selecting purchases of user[%s]: %w", userID, err)
	}
	return ps, nil
}
