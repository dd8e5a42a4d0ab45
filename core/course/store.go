package course

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/learnhub/core/user"
	"github.com/irsalhamdi/learnhub/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	INSERT INTO courses
		(course_id, creator_id, title, subtitle, description, category, level, price,
		 thumbnail_url, published, created_at, updated_at, version)
	VALUES
		(:course_id, :creator_id, :title, :subtitle, :description, :category, :level, :price,
		 :thumbnail_url, :published, :created_at, :updated_at, :version)`

	if err := database.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

// Update writes c if nobody changed the row since it was read.
func Update(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	UPDATE courses SET
		title = :title,
		subtitle = :subtitle,
		description = :description,
		category = :category,
		level = :level,
		price = :price,
		thumbnail_url = :thumbnail_url,
		published = :published,
		updated_at = :updated_at,
		version = version + 1
	WHERE course_id = :course_id AND version = :version`

	n, err := database.NamedExecRows(ctx, db, q, c)
	if err != nil {
		return fmt.Errorf("updating course[%s]: %w", c.ID, err)
	}
	if n == 0 {
		return ErrEditConflict
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	const q = `SELECT * FROM courses WHERE course_id = :course_id`

	var c Course
	if err := database.NamedQueryStruct(ctx, db, q, map[string]any{"course_id": id}, &c); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Course{}, ErrNotFound
		}
		return Course{}, fmt.Errorf("selecting course[%s]: %w", id, err)
	}
	return c, nil
}

// FetchDetail loads the course with its creator, lectures and enrolled
// students resolved.
func FetchDetail(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	c, err := Fetch(ctx, db, id)
	if err != nil {
		return Course{}, err
	}

	const qc = `SELECT user_id, name, photo_url FROM users WHERE user_id = :user_id`
	var cr user.Creator
	if err := database.NamedQueryStruct(ctx, db, qc, map[string]any{"user_id": c.CreatorID}, &cr); err != nil {
		return Course{}, fmt.Errorf("selecting creator of course[%s]: %w", id, err)
	}
	c.Creator = &cr

	if c.Lectures, err = QueryLectures(ctx, db, id); err != nil {
		return Course{}, err
	}

	if c.EnrolledStudents, err = QueryEnrolledStudentIDs(ctx, db, id); err != nil {
		return Course{}, err
	}
	return c, nil
}

func QueryPublished(ctx context.Context, db sqlx.ExtContext, f Filter) ([]Course, error) {
	const q = `
	SELECT * FROM courses
	WHERE published
		AND (CAST(:search AS TEXT) = ''
			OR title ILIKE '%' || CAST(:search AS TEXT) || '%'
			OR subtitle ILIKE '%' || CAST(:search AS TEXT) || '%')
		AND (CAST(:category AS TEXT) = '' OR category = :category)
	ORDER BY created_at DESC`

	var cs []Course
	if err := database.NamedQuerySlice(ctx, db, q, f, &cs); err != nil {
		return nil, fmt.Errorf("selecting published courses: %w", err)
	}
	return cs, nil
}

func QueryByCreator(ctx context.Context, db sqlx.ExtContext, creatorID string) ([]Course, error) {
	const q = `
	SELECT * FROM courses
	WHERE creator_id = :creator_id
	ORDER BY created_at DESC`

	var cs []Course
	if err := database.NamedQuerySlice(ctx, db, q, map[string]any{"creator_id": creatorID}, &cs); err != nil {
		return nil, fmt.Errorf("selecting courses of creator[%s]: %w", creatorID, err)
	}
	return cs, nil
}

func QueryEnrolled(ctx context.Context, db sqlx.ExtContext, userID string) ([]Course, error) {
	const q = `
	SELECT c.* FROM courses c
	JOIN enrollments e ON e.course_id = c.course_id
	WHERE e.user_id = :user_id
	ORDER BY e.created_at DESC`

	var cs []Course
	if err := database.NamedQuerySlice(ctx, db, q, map[string]any{"user_id": userID}, &cs); err != nil {
		return nil, fmt.Errorf("selecting enrolled courses of user[%s]: %w", userID, err)
	}
	return cs, nil
}

// Enroll adds the (user, course) pair to the enrollment relation. Enrolling
// twice is a no-op; added reports whether a row was inserted.
func Enroll(ctx context.Context, db sqlx.ExtContext, userID, courseID string, now time.Time) (added bool, err error) {
	const q = `
	INSERT INTO enrollments (user_id, course_id, created_at)
	VALUES (:user_id, :course_id, :created_at)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	args := map[string]any{"user_id": userID, "course_id": courseID, "created_at": now}
	n, err := database.NamedExecRows(ctx, db, q, args)
	if err != nil {
		return false, fmt.Errorf("enrolling user[%s] in course[%s]: %w", userID, courseID, err)
	}
	return n == 1, nil
}

func IsEnrolled(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (bool, error) {
	const q = `
	SELECT EXISTS (
		SELECT 1 FROM enrollments WHERE user_id = :user_id AND course_id = :course_id
	)`

	var ok bool
	if err := database.NamedQueryStruct(ctx, db, q, map[string]any{"user_id": userID, "course_id": courseID}, &ok); err != nil {
		return false, fmt.Errorf("checking enrollment of user[%s] in course[%s]: %w", userID, courseID, err)
	}
	return ok, nil
}

// QueryEnrolledStudentIDs returns the course's side of the enrollment relation.
func QueryEnrolledStudentIDs(ctx context.Context, db sqlx.ExtContext, courseID string) ([]string, error) {
	const q = `
	SELECT user_id FROM enrollments
	WHERE course_id = :course_id
	ORDER BY created_at`

	var ids []string
	if err := database.NamedQuerySlice(ctx, db, q, map[string]any{"course_id": courseID}, &ids); err != nil {
		return nil, fmt.Errorf("selecting students of course[%s]: %w", courseID, err)
	}
	return ids, nil
}
