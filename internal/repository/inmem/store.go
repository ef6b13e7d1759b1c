// Package inmem keeps every row in process memory. It honours the same
// conditional-update contract as the Postgres repositories and pushes match
// changes to subscribers synchronously, which makes multi-actor scenarios
// deterministic in tests.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
)

type Store struct {
	mu         sync.RWMutex
	requests   map[uuid.UUID]*model.MatchRequest
	matches    map[uuid.UUID]*model.Match
	users      map[uuid.UUID]*model.User
	extensions map[uuid.UUID]*model.Extension

	fanout *matchmaking.Fanout

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		requests:   make(map[uuid.UUID]*model.MatchRequest),
		matches:    make(map[uuid.UUID]*model.Match),
		users:      make(map[uuid.UUID]*model.User),
		extensions: make(map[uuid.UUID]*model.Extension),
		fanout:     matchmaking.NewFanout(),
		now:        time.Now,
	}
}

// SetClock overrides the clock used for created_at defaults.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ============ Match requests ============

func (s *Store) InsertRequest(ctx context.Context, req *model.MatchRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Status == "" {
		req.Status = model.RequestStatusSearching
	}
	if err := model.Validate(req); err != nil {
		return err
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = s.now()
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (*model.MatchRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[id].Clone(), nil
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id uuid.UUID, from, to model.RequestStatus, matchID *uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != from || !from.CanTransition(to) {
		return false, nil
	}
	r.Status = to
	if matchID != nil {
		mid := *matchID
		r.MatchID = &mid
	}
	return true, nil
}

func (s *Store) QueryRequests(ctx context.Context, q matchmaking.RequestQuery) ([]*model.MatchRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.MatchRequest
	for _, r := range s.requests {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if q.Role != "" && r.Role != q.Role {
			continue
		}
		if q.UserID != uuid.Nil && r.UserID != q.UserID {
			continue
		}
		if q.ExcludingUser != uuid.Nil && r.UserID == q.ExcludingUser {
			continue
		}
		if !q.CreatedBefore.IsZero() && !r.CreatedAt.Before(q.CreatedBefore) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ClaimPair inserts the match and flips both requests to matched only when
// both are still searching.
func (s *Store) ClaimPair(ctx context.Context, a, b uuid.UUID, m *model.Match) (bool, error) {
	s.mu.Lock()
	ra, okA := s.requests[a]
	rb, okB := s.requests[b]
	if !okA || !okB || !ra.IsSearching() || !rb.IsSearching() {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.prepareMatchLocked(m); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.matches[m.ID] = m.Clone()
	for _, r := range []*model.MatchRequest{ra, rb} {
		mid := m.ID
		r.Status = model.RequestStatusMatched
		r.MatchID = &mid
	}
	snapshot := m.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
	return true, nil
}

// ============ Matches ============

func (s *Store) prepareMatchLocked(m *model.Match) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = model.MatchStatusActive
	}
	now := s.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return model.Validate(m)
}

func (s *Store) InsertMatch(ctx context.Context, m *model.Match) error {
	s.mu.Lock()
	if err := s.prepareMatchLocked(m); err != nil {
		s.mu.Unlock()
		return err
	}
	s.matches[m.ID] = m.Clone()
	snapshot := m.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
	return nil
}

func (s *Store) GetMatch(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matches[id].Clone(), nil
}

func (s *Store) UpdateMatch(ctx context.Context, id uuid.UUID, upd matchmaking.MatchUpdate) (*model.Match, bool, error) {
	s.mu.Lock()
	m, ok := s.matches[id]
	if !ok {
		s.mu.Unlock()
		return nil, false, nil
	}
	if upd.ExpectStatus != "" && m.Status != upd.ExpectStatus {
		cur := m.Clone()
		s.mu.Unlock()
		return cur, false, nil
	}
	if upd.Status != nil && *upd.Status != m.Status {
		if !m.Status.CanTransition(*upd.Status) {
			cur := m.Clone()
			s.mu.Unlock()
			return cur, false, nil
		}
	}
	next := m.Clone()
	if upd.Status != nil {
		next.Status = *upd.Status
	}
	if upd.StudentConfirmed != nil {
		next.StudentConfirmed = *upd.StudentConfirmed
	}
	if upd.TutorConfirmed != nil {
		next.TutorConfirmed = *upd.TutorConfirmed
	}
	if next.IsActivatable() && !m.IsActivatable() && s.hasOtherActivatableLocked(next) {
		s.mu.Unlock()
		return nil, false, fmt.Errorf("update match: %w", matchmaking.ErrAlreadyMatched)
	}
	m.Status = next.Status
	m.StudentConfirmed = next.StudentConfirmed
	m.TutorConfirmed = next.TutorConfirmed
	m.UpdatedAt = s.now()
	snapshot := m.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
	return snapshot.Clone(), true, nil
}

// hasOtherActivatableLocked reports whether a participant of m already holds
// another fully confirmed active match. Mirrors the partial unique indexes
// on the matches table.
func (s *Store) hasOtherActivatableLocked(m *model.Match) bool {
	for _, other := range s.matches {
		if other.ID == m.ID || !other.IsActivatable() {
			continue
		}
		if other.HasUser(m.StudentID) || other.HasUser(m.TutorID) {
			return true
		}
	}
	return false
}

func (s *Store) QueryMatchesForUser(ctx context.Context, userID uuid.UUID) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Match
	for _, m := range s.matches {
		if m.HasUser(userID) {
			out = append(out, m.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) QueryMatches(ctx context.Context, q matchmaking.MatchQuery) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Match
	for _, m := range s.matches {
		if q.Status != "" && m.Status != q.Status {
			continue
		}
		if q.Unconfirmed && m.StudentConfirmed && m.TutorConfirmed {
			continue
		}
		if !q.CreatedBefore.IsZero() && !m.CreatedAt.Before(q.CreatedBefore) {
			continue
		}
		out = append(out, m.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(ms []*model.Match) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].ID.String() > ms[j].ID.String()
		}
		return ms[i].CreatedAt.After(ms[j].CreatedAt)
	})
}

// ============ Push subscriptions ============

// Subscribe registers fn for changes of the user's matches. Callbacks run
// synchronously on the goroutine that wrote the row, after the store lock is
// released.
func (s *Store) Subscribe(ctx context.Context, userID uuid.UUID, fn func(*model.Match)) (func(), error) {
	return s.fanout.Add(userID, fn), nil
}

// Subscribers reports how many users currently have a subscription.
func (s *Store) Subscribers() int {
	return s.fanout.Len()
}

func (s *Store) publish(m *model.Match) {
	s.fanout.Publish(m)
}
