// Package progress tracks which lectures an enrolled user has watched and
// whether the user marked the course as completed.
package progress

import (
	"errors"
	"math"
	"time"

	"github.com/irsalhamdi/learnhub/core/course"
)

var ErrLecturesRemaining = errors.New("all lectures must be viewed before completing the course")

// CourseProgress is created lazily on the first read or mutation.
type CourseProgress struct {
	UserID    string    `json:"userId" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type LectureProgress struct {
	LectureID string `json:"lectureId" db:"lecture_id"`
	Viewed    bool   `json:"viewed" db:"viewed"`
}

type View struct {
	CourseDetails        course.Course     `json:"courseDetails"`
	Progress             []LectureProgress `json:"progress"`
	Completed            bool              `json:"completed"`
	CompletionPercentage int               `json:"completionPercentage"`
}

// Percentage is round(100*viewed/total), 0 for a course without lectures.
func Percentage(viewed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(viewed) / float64(total)))
}

// ViewedCount counts the lectures of the course the entries mark as viewed.
// Entries for other lectures and duplicates are ignored.
func ViewedCount(lectures []course.Lecture, entries []LectureProgress) int {
	viewed := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Viewed {
			viewed[e.LectureID] = true
		}
	}

	var n int
	for _, l := range lectures {
		if viewed[l.ID] {
			n++
		}
	}
	return n
}

// CheckCompletable fails unless every lecture is viewed. A course without
// lectures is always completable.
func CheckCompletable(lectures []course.Lecture, entries []LectureProgress) error {
	if ViewedCount(lectures, entries) < len(lectures) {
		return ErrLecturesRemaining
	}
	return nil
}

// newView reports the course as completed only while every lecture is still
// viewed. Lectures added after completion reopen it.
func newView(c course.Course, cp CourseProgress, entries []LectureProgress) View {
	if entries == nil {
		entries = []LectureProgress{}
	}
	viewed := ViewedCount(c.Lectures, entries)
	return View{
		CourseDetails:        c,
		Progress:             entries,
		Completed:            cp.Completed && viewed == len(c.Lectures),
		CompletionPercentage: Percentage(viewed, len(c.Lectures)),
	}
}
