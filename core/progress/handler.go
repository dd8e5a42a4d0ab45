package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/learnhub/api/background"
	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/core/course"
	"github.com/irsalhamdi/learnhub/database"
	"github.com/irsalhamdi/learnhub/events"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, courseID, err := enrolled(ctx, db, web.Param(r, "course_id"))
		if err != nil {
			return err
		}

		cp, err := Ensure(ctx, db, userID, courseID, time.Now().UTC())
		if err != nil {
			return err
		}

		v, err := load(ctx, db, cp)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, v, http.StatusOK)
	}
}

func HandleView(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, courseID, err := enrolled(ctx, db, web.Param(r, "course_id"))
		if err != nil {
			return err
		}

		lectureID := web.Param(r, "lecture_id")
		if err := validate.CheckID(lectureID); err != nil {
			return weberr.InvalidInput(err)
		}

		var cp CourseProgress
		err = database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
			l, err := course.FetchLecture(ctx, tx, lectureID)
			if err != nil {
				return err
			}
			if l.CourseID != courseID {
				return course.ErrLectureMissing
			}

			now := time.Now().UTC()
			if cp, err = Ensure(ctx, tx, userID, courseID, now); err != nil {
				return err
			}

			_, err = MarkViewed(ctx, tx, userID, courseID, lectureID, now)
			return err
		})
		if err != nil {
			if errors.Is(err, course.ErrLectureMissing) {
				return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"lecture_id": lectureID, "course_id": courseID}))
			}
			return err
		}

		v, err := load(ctx, db, cp)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, v, http.StatusOK)
	}
}

// HandleComplete marks the course completed once every lecture is viewed and
// announces the first completion.
func HandleComplete(db *sqlx.DB, pub events.Publisher, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, courseID, err := enrolled(ctx, db, web.Param(r, "course_id"))
		if err != nil {
			return err
		}

		var (
			cp      CourseProgress
			changed bool
		)
		now := time.Now().UTC()
		err = database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
			if cp, err = Ensure(ctx, tx, userID, courseID, now); err != nil {
				return err
			}

			ls, err := course.QueryLectures(ctx, tx, courseID)
			if err != nil {
				return err
			}
			lps, err := QueryLectures(ctx, tx, userID, courseID)
			if err != nil {
				return err
			}
			if err := CheckCompletable(ls, lps); err != nil {
				return err
			}

			changed, err = SetCompleted(ctx, tx, userID, courseID, true, now)
			return err
		})
		if err != nil {
			if errors.Is(err, ErrLecturesRemaining) {
				return weberr.PreconditionFailed(ErrLecturesRemaining)
			}
			return err
		}
		cp.Completed = true

		if changed {
			bg.Go("completion-event", func(ctx context.Context) error {
				return pub.Publish(ctx, events.Event{
					Type:       events.TypeCourseCompleted,
					UserID:     userID,
					CourseID:   courseID,
					OccurredAt: now,
				})
			})
		}

		v, err := load(ctx, db, cp)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, v, http.StatusOK)
	}
}

func HandleIncomplete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, courseID, err := enrolled(ctx, db, web.Param(r, "course_id"))
		if err != nil {
			return err
		}

		var cp CourseProgress
		err = database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
			now := time.Now().UTC()
			if cp, err = Ensure(ctx, tx, userID, courseID, now); err != nil {
				return err
			}
			_, err = SetCompleted(ctx, tx, userID, courseID, false, now)
			return err
		})
		if err != nil {
			return err
		}
		cp.Completed = false

		v, err := load(ctx, db, cp)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, v, http.StatusOK)
	}
}

// enrolled checks the course id and that the caller is enrolled in it.
func enrolled(ctx context.Context, db sqlx.ExtContext, courseID string) (userID, id string, err error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return "", "", weberr.NotAuthorized(errors.New("user not authenticated"))
	}

	if err := validate.CheckID(courseID); err != nil {
		return "", "", weberr.InvalidInput(err)
	}

	ok, err := course.IsEnrolled(ctx, db, clm.UserID, courseID)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", weberr.Forbidden(course.ErrNotEnrolled, weberr.WithFields(map[string]interface{}{"course_id": courseID}))
	}

	return clm.UserID, courseID, nil
}

func load(ctx context.Context, db sqlx.ExtContext, cp CourseProgress) (View, error) {
	c, err := course.FetchDetail(ctx, db, cp.CourseID)
	if err != nil {
		return View{}, fmt.Errorf("loading course of progress: %w", err)
	}

	lps, err := QueryLectures(ctx, db, cp.UserID, cp.CourseID)
	if err != nil {
		return View{}, err
	}

	return newView(c, cp, lps), nil
}
