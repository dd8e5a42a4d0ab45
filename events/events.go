// Package events publishes domain events (enrollments, completions) for
// downstream consumers such as analytics and certificates.
package events

import (
	"context"
	"time"
)

const (
	TypeCourseEnrolled  = "course.enrolled"
	TypeCourseCompleted = "course.completed"
)

type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	CourseID   string    `json:"courseId"`
	PurchaseID string    `json:"purchaseId,omitempty"`
	Amount     int       `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
