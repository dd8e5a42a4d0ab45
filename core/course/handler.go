package course

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

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		f := Filter{
			Search:   web.Query(r, "q"),
			Category: web.Query(r, "category"),
		}

		cs, err := QueryPublished(ctx, db, f)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		c, err := FetchDetail(ctx, db, id)
		if err != nil {
			return notFoundOr(err, id)
		}

		ok, err := Entitled(ctx, db, c)
		if err != nil {
			return err
		}
		if !c.Published && !isOwner(ctx, c) {
			return weberr.NotFound(ErrNotFound)
		}
		if !ok {
			c.Lectures = Redact(c.Lectures)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleListCreated(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		cs, err := QueryByCreator(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleListEnrolled(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		cs, err := QueryEnrolled(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.InvalidInput(err)
		}

		now := time.Now().UTC()
		c := Course{
			ID:           validate.GenerateID(),
			CreatorID:    clm.UserID,
			Title:        cn.Title,
			Subtitle:     cn.Subtitle,
			Description:  cn.Description,
			Category:     cn.Category,
			Level:        cn.Level,
			Price:        cn.Price,
			ThumbnailURL: cn.ThumbnailURL,
			CreatedAt:    now,
			UpdatedAt:    now,
			Version:      1,
		}

		if err := Create(ctx, db, c); err != nil {
			return fmt.Errorf("creating course: %w", err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.InvalidInput(err)
		}

		cu.apply(&c)
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			if errors.Is(err, ErrEditConflict) {
				return weberr.Conflict(err)
			}
			return err
		}
		c.Version++

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

// HandlePublish toggles the published flag through ?publish=true|false.
func HandlePublish(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		var publish bool
		switch web.Query(r, "publish") {
		case "true":
			publish = true
		case "false":
			publish = false
		default:
			return weberr.InvalidInput(errors.New("publish must be true or false"))
		}

		if publish {
			ls, err := QueryLectures(ctx, db, c.ID)
			if err != nil {
				return err
			}
			if len(ls) == 0 {
				return weberr.PreconditionFailed(ErrNoLectures)
			}
		}

		c.Published = publish
		c.UpdatedAt = time.Now().UTC()
		if err := Update(ctx, db, c); err != nil {
			if errors.Is(err, ErrEditConflict) {
				return weberr.Conflict(err)
			}
			return err
		}
		c.Version++

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

// Entitled reports whether the caller may watch every lecture of c: its
// creator or an enrolled user.
func Entitled(ctx context.Context, db sqlx.ExtContext, c Course) (bool, error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return false, nil
	}
	if c.OwnedBy(clm.UserID) {
		return true, nil
	}
	return IsEnrolled(ctx, db, clm.UserID, c.ID)
}

func isOwner(ctx context.Context, c Course) bool {
	clm, err := claims.Get(ctx)
	return err == nil && c.OwnedBy(clm.UserID)
}

func fetchOwned(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	if err := validate.CheckID(id); err != nil {
		return Course{}, weberr.InvalidInput(err)
	}

	c, err := Fetch(ctx, db, id)
	if err != nil {
		return Course{}, notFoundOr(err, id)
	}

	if !isOwner(ctx, c) {
		return Course{}, weberr.Forbidden(ErrNotOwner)
	}
	return c, nil
}

func notFoundOr(err error, id string) error {
	if errors.Is(err, ErrNotFound) {
		return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"course_id": id}))
	}
	return fmt.Errorf("fetching course[%s]: %w", id, err)
}
