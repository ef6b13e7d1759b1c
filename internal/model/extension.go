package model

import (
	"time"

	"github.com/google/uuid"
)

type ExtensionStatus string

const (
	ExtensionStatusPending  ExtensionStatus = "pending"
	ExtensionStatusAccepted ExtensionStatus = "accepted"
	ExtensionStatusDeclined ExtensionStatus = "declined"
)

// Extension is a tutor-initiated grant that keeps a match from being ended
// until it expires.
type Extension struct {
	ID         uuid.UUID       `json:"id"`
	StudentID  uuid.UUID       `json:"student_id" validate:"required"`
	TutorID    uuid.UUID       `json:"tutor_id" validate:"required"`
	MatchID    uuid.UUID       `json:"match_id" validate:"required"`
	Subject    string          `json:"subject" validate:"required"`
	GradeLevel string          `json:"grade_level" validate:"required"`
	Reason     string          `json:"reason" validate:"required,max=500"`
	Status     ExtensionStatus `json:"status" validate:"oneof=pending accepted declined"`
	ExpiresAt  *time.Time      `json:"expires_at"` // nil пока студент не принял
	CreatedAt  time.Time       `json:"created_at"`
}

// IsActiveAt checks if the extension blocks ending the match at the given time.
func (e *Extension) IsActiveAt(now time.Time) bool {
	return e.Status == ExtensionStatusAccepted && e.ExpiresAt != nil && e.ExpiresAt.After(now)
}

// IsPending checks if the student has not answered yet
func (e *Extension) IsPending() bool {
	return e.Status == ExtensionStatusPending
}
