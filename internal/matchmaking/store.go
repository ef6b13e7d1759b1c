package matchmaking

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
)

// RequestQuery filters match requests. Zero fields do not filter.
type RequestQuery struct {
	Status        model.RequestStatus
	Role          model.Role
	UserID        uuid.UUID
	ExcludingUser uuid.UUID
	CreatedBefore time.Time
}

// RequestStore persists match requests.
type RequestStore interface {
	InsertRequest(ctx context.Context, req *model.MatchRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*model.MatchRequest, error)
	// UpdateRequestStatus moves the request from one status to another only if
	// its current status equals from. matchID is recorded when not nil. It
	// reports whether the row was updated.
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, from, to model.RequestStatus, matchID *uuid.UUID) (bool, error)
	// QueryRequests returns matching requests ordered oldest first.
	QueryRequests(ctx context.Context, q RequestQuery) ([]*model.MatchRequest, error)
}

// MatchUpdate is a field-level update of a match. Nil fields are left alone.
type MatchUpdate struct {
	ExpectStatus     model.MatchStatus // guard; empty means any
	Status           *model.MatchStatus
	StudentConfirmed *bool
	TutorConfirmed   *bool
}

// MatchQuery filters matches. Zero fields do not filter.
type MatchQuery struct {
	Status        model.MatchStatus
	Unconfirmed   bool
	CreatedBefore time.Time
}

// MatchStore persists matches.
type MatchStore interface {
	InsertMatch(ctx context.Context, m *model.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*model.Match, error)
	// UpdateMatch applies the update when the guard holds and returns the
	// resulting row. The bool is false when the guard rejected the update.
	// An update that would leave a participant with a second fully confirmed
	// active match must fail with an error wrapping ErrAlreadyMatched, checked
	// atomically with the write.
	UpdateMatch(ctx context.Context, id uuid.UUID, upd MatchUpdate) (*model.Match, bool, error)
	// QueryMatchesForUser returns every match of the user, newest first.
	QueryMatchesForUser(ctx context.Context, userID uuid.UUID) ([]*model.Match, error)
	QueryMatches(ctx context.Context, q MatchQuery) ([]*model.Match, error)
}

// PairClaimer is implemented by stores that can pair two requests atomically:
// the match is inserted and both requests flip from searching to matched in
// one step, or nothing happens and claimed is false.
type PairClaimer interface {
	ClaimPair(ctx context.Context, a, b uuid.UUID, m *model.Match) (claimed bool, err error)
}

// ProfileProvider resolves the acting user's profile.
type ProfileProvider interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// ExtensionProvider answers whether an unexpired extension grant exists for
// the student and the subject/grade tuple of a match.
type ExtensionProvider interface {
	HasActiveExtension(ctx context.Context, studentID uuid.UUID, subject, gradeLevel string) (bool, error)
}

// SessionHandoff bootstraps a call session for a fully confirmed match.
type SessionHandoff interface {
	BeginSession(ctx context.Context, matchID, userID uuid.UUID) error
}
