package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShowCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		u, err := fetchWithEnrollments(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		if !claims.IsUser(ctx, id) {
			return weberr.Forbidden(fmt.Errorf("user cannot read profile of user[%s]", id))
		}

		u, err := fetchWithEnrollments(ctx, db, id)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleUpdateCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var up UserUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.InvalidInput(err)
		}

		u, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching user[%s]: %w", clm.UserID, err)
		}

		if up.Name != nil {
			u.Name = *up.Name
		}
		if up.PhotoURL != nil {
			u.PhotoURL = *up.PhotoURL
		}
		u.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, u); err != nil {
			return fmt.Errorf("updating user[%s]: %w", u.ID, err)
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func fetchWithEnrollments(ctx context.Context, db *sqlx.DB, id string) (User, error) {
	u, err := Fetch(ctx, db, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, weberr.NotFound(err)
		}
		return User{}, fmt.Errorf("fetching user[%s]: %w", id, err)
	}

	if u.EnrolledCourses, err = QueryEnrolledCourseIDs(ctx, db, id); err != nil {
		return User{}, err
	}
	return u, nil
}
