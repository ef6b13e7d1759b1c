package model

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusSearching RequestStatus = "searching" // В пуле, ждёт пару
	RequestStatusMatched   RequestStatus = "matched"   // Забран парой
	RequestStatusCancelled RequestStatus = "cancelled" // Отменён пользователем или по таймауту
)

// Sentinel values used when an actor declared nothing.
const (
	SubjectGeneral   = "General"
	GradeUnspecified = "unspecified"
)

// MatchRequest is a pending declaration of intent to be paired.
type MatchRequest struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"user_id" validate:"required"`
	Role       Role          `json:"role" validate:"oneof=student teacher"`
	Subjects   []string      `json:"subjects" validate:"min=1,dive,required"`
	GradeLevel string        `json:"grade_level" validate:"required"`
	Status     RequestStatus `json:"status" validate:"oneof=searching matched cancelled"`
	MatchID    *uuid.UUID    `json:"match_id"` // заполняется при паринге
	CreatedAt  time.Time     `json:"created_at"`
}

// IsSearching reports whether the request is still in the pool.
func (r *MatchRequest) IsSearching() bool {
	return r.Status == RequestStatusSearching
}

// IsTerminal reports whether the request left the pool for good.
func (r *MatchRequest) IsTerminal() bool {
	return r.Status == RequestStatusMatched || r.Status == RequestStatusCancelled
}

// CanTransition reports whether moving from one status to another keeps the
// request lifecycle monotonic.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	return s == RequestStatusSearching && (to == RequestStatusMatched || to == RequestStatusCancelled)
}

// Clone returns a deep copy so callers never share the subjects slice.
func (r *MatchRequest) Clone() *MatchRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Subjects = append([]string(nil), r.Subjects...)
	if r.MatchID != nil {
		id := *r.MatchID
		c.MatchID = &id
	}
	return &c
}
