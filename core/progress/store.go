package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/learnhub/database"
	"github.com/jmoiron/sqlx"
)

// Ensure creates the empty progress record of (user, course) if missing and
// returns the stored one.
func Ensure(ctx context.Context, db sqlx.ExtContext, userID, courseID string, now time.Time) (CourseProgress, error) {
	const q = `
	INSERT INTO course_progress (user_id, course_id, completed, created_at, updated_at)
	VALUES (:user_id, :course_id, FALSE, :now, :now)
	ON CONFLICT (user_id, course_id) DO UPDATE SET user_id = EXCLUDED.user_id
	RETURNING *`

	var cp CourseProgress
	args := map[string]any{"user_id": userID, "course_id": courseID, "now": now}
	if err := database.NamedQueryStruct(ctx, db, q, args, &cp); err != nil {
		return CourseProgress{}, fmt.Errorf("ensuring progress of user[%s] in course[%s]: %w", userID, courseID, err)
	}
	return cp, nil
}

func QueryLectures(ctx context.Context, db sqlx.ExtContext, userID, courseID string) ([]LectureProgress, error) {
	const q = `
	SELECT lecture_id, viewed FROM lecture_progress
	WHERE user_id = :user_id AND course_id = :course_id
	ORDER BY created_at`

	var lps []LectureProgress
	args := map[string]any{"user_id": userID, "course_id": courseID}
	if err := database.NamedQuerySlice(ctx, db, q, args, &lps); err != nil {
		return nil, fmt.Errorf("selecting lecture progress of user[%s] in course[%s]: %w", userID, courseID, err)
	}
	return lps, nil
}

// MarkViewed records the lecture as viewed. Viewing it again is a no-op;
// added reports whether a new entry was stored.
func MarkViewed(ctx context.Context, db sqlx.ExtContext, userID, courseID, lectureID string, now time.Time) (added bool, err error) {
	const q = `
	INSERT INTO lecture_progress (user_id, course_id, lecture_id, viewed, created_at)
	VALUES (:user_id, :course_id, :lecture_id, TRUE, :now)
	ON CONFLICT (user_id, lecture_id) DO NOTHING`

	args := map[string]any{"user_id": userID, "course_id": courseID, "lecture_id": lectureID, "now": now}
	n, err := database.NamedExecRows(ctx, db, q, args)
	if err != nil {
		return false, fmt.Errorf("marking lecture[%s] viewed by user[%s]: %w", lectureID, userID, err)
	}
	return n == 1, nil
}

// SetCompleted stores the course-level flag; changed is false when it
// already had that value.
func SetCompleted(ctx context.Context, db sqlx.ExtContext, userID, courseID string, completed bool, now time.Time) (changed bool, err error) {
	const q = `
	UPDATE course_progress SET
		completed = :completed,
		updated_at = :now
	WHERE user_id = :user_id AND course_id = :course_id AND completed <> :completed`

	args := map[string]any{"user_id": userID, "course_id": courseID, "completed": completed, "now": now}
	n, err := database.NamedExecRows(ctx, db, q, args)
	if err != nil {
		return false, fmt.Errorf("setting completion of user[%s] in course[%s]: %w", userID, courseID, err)
	}
	return n == 1, nil
}
