package progress

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/core/course"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		viewed, total, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 8, 13},
	}

	for _, tc := range tests {
		if got := Percentage(tc.viewed, tc.total); got != tc.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tc.viewed, tc.total, got, tc.want)
		}
	}
}

func lectures(ids ...string) []course.Lecture {
	ls := make([]course.Lecture, len(ids))
	for i, id := range ids {
		ls[i] = course.Lecture{ID: id, Position: i + 1}
	}
	return ls
}

func TestViewedCount(t *testing.T) {
	ls := lectures("l1", "l2", "l3")
	entries := []LectureProgress{
		{LectureID: "l1", Viewed: true},
		{LectureID: "l1", Viewed: true},
		{LectureID: "l9", Viewed: true},
		{LectureID: "l2", Viewed: false},
	}

	if got := ViewedCount(ls, entries); got != 1 {
		t.Errorf("ViewedCount = %d, want 1", got)
	}
}

func TestCheckCompletable(t *testing.T) {
	ls := lectures("l1", "l2", "l3")

	err := CheckCompletable(ls, []LectureProgress{{LectureID: "l1", Viewed: true}, {LectureID: "l2", Viewed: true}})
	if err != ErrLecturesRemaining {
		t.Errorf("two of three viewed: got %v, want %v", err, ErrLecturesRemaining)
	}

	all := []LectureProgress{{"l1", true}, {"l2", true}, {"l3", true}}
	if err := CheckCompletable(ls, all); err != nil {
		t.Errorf("all viewed: %v", err)
	}

	if err := CheckCompletable(nil, nil); err != nil {
		t.Errorf("no lectures: %v", err)
	}
}

func TestNewView(t *testing.T) {
	c := course.Course{ID: "c1", Lectures: lectures("l1", "l2", "l3")}
	cp := CourseProgress{UserID: "u1", CourseID: "c1"}
	entries := []LectureProgress{{"l1", true}, {"l3", true}}

	got := newView(c, cp, entries)
	want := View{
		CourseDetails:        c,
		Progress:             entries,
		Completed:            false,
		CompletionPercentage: 67,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("view mismatch (-want +got):\n%s", diff)
	}

	empty := newView(course.Course{ID: "c2"}, CourseProgress{Completed: true}, nil)
	if empty.Progress == nil || len(empty.Progress) != 0 {
		t.Errorf("empty progress should be an empty list, got %#v", empty.Progress)
	}
	if empty.CompletionPercentage != 0 || !empty.Completed {
		t.Errorf("unexpected empty view %+v", empty)
	}
}

func TestNewViewReopensWhenLecturesAdded(t *testing.T) {
	cp := CourseProgress{UserID: "u1", CourseID: "c1", Completed: true}
	entries := []LectureProgress{{"l1", true}, {"l2", true}}

	done := newView(course.Course{ID: "c1", Lectures: lectures("l1", "l2")}, cp, entries)
	if !done.Completed || done.CompletionPercentage != 100 {
		t.Fatalf("all lectures viewed: got completed=%v percentage=%d", done.Completed, done.CompletionPercentage)
	}

	grown := newView(course.Course{ID: "c1", Lectures: lectures("l1", "l2", "l3")}, cp, entries)
	if grown.Completed {
		t.Errorf("a course with an unviewed lecture must not be reported completed")
	}
	if grown.CompletionPercentage != 67 {
		t.Errorf("percentage: got %d, want 67", grown.CompletionPercentage)
	}
}

func TestHandlersRejectBeforeStorage(t *testing.T) {
	tests := []struct {
		name     string
		courseID string
		auth     bool
		status   int
	}{
		{name: "anonymous", courseID: "x", status: http.StatusUnauthorized},
		{name: "malformed course id", courseID: "not-an-id", auth: true, status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/progress/"+tc.courseID, nil)
			r = mux.SetURLVars(r, map[string]string{"course_id": tc.courseID})
			if tc.auth {
				r = r.WithContext(claims.Set(r.Context(), claims.Claims{UserID: "u1", Role: claims.RoleStudent}))
			}

			err := HandleShow(nil)(r.Context(), httptest.NewRecorder(), r)
			if got := weberr.Status(err); got != tc.status {
				t.Errorf("status = %d, want %d (err %v)", got, tc.status, err)
			}
		})
	}
}
