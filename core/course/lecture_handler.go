package course

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
)

func HandleListLectures(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "course_id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			return notFoundOr(err, id)
		}
		if !c.Published && !isOwner(ctx, c) {
			return weberr.NotFound(ErrNotFound)
		}

		ls, err := QueryLectures(ctx, db, id)
		if err != nil {
			return err
		}

		ok, err := Entitled(ctx, db, c)
		if err != nil {
			return err
		}
		if !ok {
			ls = Redact(ls)
		}

		return web.Respond(ctx, w, ls, http.StatusOK)
	}
}

func HandleCreateLecture(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := fetchOwned(ctx, db, web.Param(r, "course_id"))
		if err != nil {
			return err
		}

		var ln LectureNew
		if err := web.Decode(w, r, &ln); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ln); err != nil {
			return weberr.InvalidInput(err)
		}

		now := time.Now().UTC()
		l := Lecture{
			ID:          validate.GenerateID(),
			CourseID:    c.ID,
			Title:       ln.Title,
			VideoURL:    ln.VideoURL,
			PreviewFree: ln.PreviewFree,
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		}
		if ln.Position != nil {
			l.Position = *ln.Position
		}

		if l, err = CreateLecture(ctx, db, l); err != nil {
			return fmt.Errorf("creating lecture for course[%s]: %w", c.ID, err)
		}

		return web.Respond(ctx, w, l, http.StatusCreated)
	}
}

func HandleUpdateLecture(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		l, err := fetchLecture(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		if _, err := fetchOwned(ctx, db, l.CourseID); err != nil {
			return err
		}

		var lu LectureUp
		if err := web.Decode(w, r, &lu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(lu); err != nil {
			return weberr.InvalidInput(err)
		}

		lu.apply(&l)
		l.UpdatedAt = time.Now().UTC()

		if err := UpdateLecture(ctx, db, l); err != nil {
			if errors.Is(err, ErrEditConflict) {
				return weberr.Conflict(err)
			}
			return err
		}
		l.Version++

		return web.Respond(ctx, w, l, http.StatusOK)
	}
}

// HandleShowLecture serves free previews to anyone and the rest of the
// lectures to entitled users only.
func HandleShowLecture(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		l, err := fetchLecture(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		c, err := Fetch(ctx, db, l.CourseID)
		if err != nil {
			return notFoundOr(err, l.CourseID)
		}
		if !c.Published && !isOwner(ctx, c) {
			return weberr.NotFound(ErrLectureMissing)
		}

		if !l.PreviewFree {
			ok, err := Entitled(ctx, db, c)
			if err != nil {
				return err
			}
			if !ok {
				return weberr.Forbidden(ErrNotEnrolled)
			}
		}

		return web.Respond(ctx, w, l, http.StatusOK)
	}
}

func fetchLecture(ctx context.Context, db sqlx.ExtContext, id string) (Lecture, error) {
	if err := validate.CheckID(id); err != nil {
		return Lecture{}, weberr.InvalidInput(err)
	}

	l, err := FetchLecture(ctx, db, id)
	if err != nil {
		if errors.Is(err, ErrLectureMissing) {
			return Lecture{}, weberr.NotFound(err)
		}
		return Lecture{}, err
	}
	return l, nil
}
