package model

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// CanTransition reports whether a match may move from s to the given status.
func (s MatchStatus) CanTransition(to MatchStatus) bool {
	return s == MatchStatusActive && (to == MatchStatusCompleted || to == MatchStatusCancelled)
}

// Match is a concrete pairing between one student and one tutor.
type Match struct {
	ID               uuid.UUID   `json:"id"`
	StudentID        uuid.UUID   `json:"student_id" validate:"required"`
	TutorID          uuid.UUID   `json:"tutor_id" validate:"required"`
	Subject          string      `json:"subject" validate:"required"`
	GradeLevel       string      `json:"grade_level" validate:"required"`
	Status           MatchStatus `json:"status" validate:"oneof=active completed cancelled"`
	StudentConfirmed bool        `json:"student_confirmed"`
	TutorConfirmed   bool        `json:"tutor_confirmed"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// IsActive checks if the match is still open
func (m *Match) IsActive() bool {
	return m.Status == MatchStatusActive
}

// IsActivatable reports whether both sides confirmed an active match, i.e.
// the match may be handed off to a call session.
func (m *Match) IsActivatable() bool {
	return m.Status == MatchStatusActive && m.StudentConfirmed && m.TutorConfirmed
}

// HasUser checks whether the user participates in the match.
func (m *Match) HasUser(userID uuid.UUID) bool {
	return m.StudentID == userID || m.TutorID == userID
}

// RoleOf returns the role the user plays in the match.
func (m *Match) RoleOf(userID uuid.UUID) (Role, bool) {
	switch userID {
	case m.StudentID:
		return RoleStudent, true
	case m.TutorID:
		return RoleTeacher, true
	}
	return "", false
}

// OtherUserID returns the partner of the given participant.
func (m *Match) OtherUserID(userID uuid.UUID) (uuid.UUID, bool) {
	switch userID {
	case m.StudentID:
		return m.TutorID, true
	case m.TutorID:
		return m.StudentID, true
	}
	return uuid.Nil, false
}

// ConfirmedBy reports whether the participant already accepted the match.
func (m *Match) ConfirmedBy(userID uuid.UUID) bool {
	switch userID {
	case m.StudentID:
		return m.StudentConfirmed
	case m.TutorID:
		return m.TutorConfirmed
	}
	return false
}

// Clone returns a copy of the match.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
