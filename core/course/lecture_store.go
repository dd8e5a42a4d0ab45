package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/learnhub/database"
	"github.com/jmoiron/sqlx"
)

// CreateLecture inserts l. A zero position appends it after the last lecture.
func CreateLecture(ctx context.Context, db sqlx.ExtContext, l Lecture) (Lecture, error) {
	const q = `
	INSERT INTO lectures
		(lecture_id, course_id, position, title, video_url, preview_free, created_at, updated_at, version)
	VALUES
		(:lecture_id, :course_id,
		 CASE WHEN CAST(:position AS INTEGER) > 0 THEN CAST(:position AS INTEGER)
		      ELSE (SELECT COALESCE(MAX(position), 0) + 1 FROM lectures WHERE course_id = :course_id) END,
		 :title, :video_url, :preview_free, :created_at, :updated_at, :version)
	RETURNING *`

	var out Lecture
	if err := database.NamedQueryStruct(ctx, db, q, l, &out); err != nil {
		return Lecture{}, fmt.Errorf("inserting lecture: %w", err)
	}
	return out, nil
}

func UpdateLecture(ctx context.Context, db sqlx.ExtContext, l Lecture) error {
	const q = `
	UPDATE lectures SET
		title = :title,
		video_url = :video_url,
		preview_free = :preview_free,
		position = :position,
		updated_at = :updated_at,
		version = version + 1
	WHERE lecture_id = :lecture_id AND version = :version`

	n, err := database.NamedExecRows(ctx, db, q, l)
	if err != nil {
		return fmt.Errorf("updating lecture[%s]: %w", l.ID, err)
	}
	if n == 0 {
		return ErrEditConflict
	}
	return nil
}

func FetchLecture(ctx context.Context, db sqlx.ExtContext, id string) (Lecture, error) {
	const q = `SELECT * FROM lectures WHERE lecture_id = :lecture_id`

	var l Lecture
	if err := database.NamedQueryStruct(ctx, db, q, map[string]any{"lecture_id": id}, &l); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Lecture{}, ErrLectureMissing
		}
		return Lecture{}, fmt.Errorf("selecting lecture[%s]: %w", id, err)
	}
	return l, nil
}

// QueryLectures returns the course's lectures in playback order.
func QueryLectures(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Lecture, error) {
	const q = `
	SELECT * FROM lectures
	WHERE course_id = :course_id
	ORDER BY position, created_at`

	var ls []Lecture
	if err := database.NamedQuerySlice(ctx, db, q, map[string]any{"course_id": courseID}, &ls); err != nil {
		return nil, fmt.Errorf("selecting lectures of course[%s]: %w", courseID, err)
	}
	return ls, nil
}
