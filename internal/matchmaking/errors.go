package matchmaking

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProfile is returned when the caller has no resolvable role or subjects.
	ErrInvalidProfile = errors.New("matchmaking: invalid profile")
	// ErrAlreadyMatched is returned when the caller already owns a confirmed active match.
	ErrAlreadyMatched = errors.New("matchmaking: already matched")
	// ErrNotParticipant is returned when the caller is neither side of the match.
	ErrNotParticipant = errors.New("matchmaking: not a participant")
	// ErrBlocked is returned when ending a match is refused by an active extension.
	ErrBlocked = errors.New("matchmaking: blocked by active extension")
	// ErrNotFound is returned when a request or match does not exist.
	ErrNotFound = errors.New("matchmaking: not found")
	// ErrMatchClosed is returned when confirming a match that is no longer active.
	ErrMatchClosed = errors.New("matchmaking: match is closed")
	// ErrNoActiveMatch is returned by EndActiveMatch when the user has nothing to end.
	ErrNoActiveMatch = errors.New("matchmaking: no confirmed active match")

	// errDuplicateMatch marks a match that lost a concurrent pairing race.
	// It never leaves the package.
	errDuplicateMatch = errors.New("matchmaking: duplicate match")
)

// StoreError wraps a failure of the persistence layer. The coordinator never
// retries these for user-initiated operations.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("matchmaking: store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err carries a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
