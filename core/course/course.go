package course

import (
	"errors"
	"time"

	"github.com/irsalhamdi/learnhub/core/user"
)

var (
	ErrNotFound       = errors.New("course not found")
	ErrEditConflict   = errors.New("course was modified concurrently, reload and retry")
	ErrNoLectures     = errors.New("a course needs at least one lecture to be published")
	ErrNotOwner       = errors.New("only the course creator can modify it")
	ErrNotEnrolled    = errors.New("user is not enrolled in this course")
	ErrLectureMissing = errors.New("lecture not found")
)

type Course struct {
	ID           string    `json:"id" db:"course_id"`
	CreatorID    string    `json:"creatorId" db:"creator_id"`
	Title        string    `json:"title" db:"title"`
	Subtitle     string    `json:"subtitle" db:"subtitle"`
	Description  string    `json:"description" db:"description"`
	Category     string    `json:"category" db:"category"`
	Level        string    `json:"level" db:"level"`
	Price        int       `json:"price" db:"price"`
	ThumbnailURL string    `json:"thumbnailUrl" db:"thumbnail_url"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	Version      int       `json:"-" db:"version"`

	Creator          *user.Creator `json:"creator,omitempty" db:"-"`
	Lectures         []Lecture     `json:"lectures,omitempty" db:"-"`
	EnrolledStudents []string      `json:"enrolledStudents,omitempty" db:"-"`
}

type CourseNew struct {
	Title        string `json:"title" validate:"required"`
	Subtitle     string `json:"subtitle"`
	Description  string `json:"description"`
	Category     string `json:"category" validate:"required"`
	Level        string `json:"level" validate:"omitempty,oneof=Beginner Medium Advance"`
	Price        int    `json:"price" validate:"gte=1,lte=100000"`
	ThumbnailURL string `json:"thumbnailUrl" validate:"omitempty,url"`
}

type CourseUp struct {
	Title        *string `json:"title" validate:"omitempty,min=1"`
	Subtitle     *string `json:"subtitle"`
	Description  *string `json:"description"`
	Category     *string `json:"category" validate:"omitempty,min=1"`
	Level        *string `json:"level" validate:"omitempty,oneof=Beginner Medium Advance"`
	Price        *int    `json:"price" validate:"omitempty,gte=1,lte=100000"`
	ThumbnailURL *string `json:"thumbnailUrl" validate:"omitempty,url"`
}

type Filter struct {
	Search   string `db:"search"`
	Category string `db:"category"`
}

func (c Course) OwnedBy(userID string) bool {
	return c.CreatorID == userID
}

func (up CourseUp) apply(c *Course) {
	if up.Title != nil {
		c.Title = *up.Title
	}
	if up.Subtitle != nil {
		c.Subtitle = *up.Subtitle
	}
	if up.Description != nil {
		c.Description = *up.Description
	}
	if up.Category != nil {
		c.Category = *up.Category
	}
	if up.Level != nil {
		c.Level = *up.Level
	}
	if up.Price != nil {
		c.Price = *up.Price
	}
	if up.ThumbnailURL != nil {
		c.ThumbnailURL = *up.ThumbnailURL
	}
}
