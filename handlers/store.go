package handlers

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when no record matches.
var ErrNotFound = errors.New("not found")

// ProgressStore defines the interface for course-progress persistence.
// The natural key is (UserID, CourseID); Upsert creates or updates.
type ProgressStore interface {
	Find(ctx context.Context, userID, courseID string) (*ProgressRecord, error)
	ListByUser(ctx context.Context, userID string) ([]ProgressRecord, error)
	ListByUserSince(ctx context.Context, userID string, since time.Time) ([]ProgressRecord, error)
	Upsert(ctx context.Context, rec *ProgressRecord) (*ProgressRecord, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

// Completer defines the interface for the text-generation service used
// by the AI read paths.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EventPublisher defines the interface for publishing events to other
// platform services.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

// AuthService verifies bearer tokens for student and lecturer routes.
type AuthService interface {
	VerifyToken(ctx context.Context, token string) (*AuthInfo, error)
}

// AuthInfo is the identity extracted from a verified token.
type AuthInfo struct {
	UserID string
	Email  string
}

// ProgressRecord is one user's progress in one course. Progress is
// clamped to [0,100] on every write path.
type ProgressRecord struct {
	ID           string    `json:"id,omitempty" firestore:"-"`
	UserID       string    `json:"userId" firestore:"user_id"`
	CourseID     string    `json:"courseId" firestore:"course_id"`
	Progress     int       `json:"progress" firestore:"progress"`
	ModuleID     string    `json:"moduleId,omitempty" firestore:"module_id,omitempty"`
	QuizID       string    `json:"quizId,omitempty" firestore:"quiz_id,omitempty"`
	Week         int       `json:"week" firestore:"week"`
	PastProgress int       `json:"pastProgress" firestore:"past_progress"`
	CreatedAt    time.Time `json:"createdAt" firestore:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updated_at"`
}

// weekOfMonth computes the week number recorded on first progress
// reports: Sundays fall into week 1, otherwise the day of month divided
// into seven-day buckets.
func weekOfMonth(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 1
	}
	return (t.Day() + 6) / 7
}
