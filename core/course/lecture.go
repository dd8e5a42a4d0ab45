package course

import "time"

type Lecture struct {
	ID          string    `json:"id" db:"lecture_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	Position    int       `json:"position" db:"position"`
	Title       string    `json:"title" db:"title"`
	VideoURL    string    `json:"videoUrl,omitempty" db:"video_url"`
	PreviewFree bool      `json:"previewFree" db:"preview_free"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type LectureNew struct {
	Title       string `json:"title" validate:"required"`
	VideoURL    string `json:"videoUrl" validate:"omitempty,url"`
	PreviewFree bool   `json:"previewFree"`
	Position    *int   `json:"position" validate:"omitempty,gte=1"`
}

type LectureUp struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	VideoURL    *string `json:"videoUrl" validate:"omitempty,url"`
	PreviewFree *bool   `json:"previewFree"`
	Position    *int    `json:"position" validate:"omitempty,gte=1"`
}

func (up LectureUp) apply(l *Lecture) {
	if up.Title != nil {
		l.Title = *up.Title
	}
	if up.VideoURL != nil {
		l.VideoURL = *up.VideoURL
	}
	if up.PreviewFree != nil {
		l.PreviewFree = *up.PreviewFree
	}
	if up.Position != nil {
		l.Position = *up.Position
	}
}

// Redact hides the video of every lecture that is not a free preview.
func Redact(lectures []Lecture) []Lecture {
	out := make([]Lecture, len(lectures))
	for i, l := range lectures {
		if !l.PreviewFree {
			l.VideoURL = ""
		}
		out[i] = l
	}
	return out
}

// LectureIDs lists the ids of lectures, preserving order.
func LectureIDs(lectures []Lecture) []string {
	ids := make([]string, len(lectures))
	for i, l := range lectures {
		ids[i] = l.ID
	}
	return ids
}
