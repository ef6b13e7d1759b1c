package inmem

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
)

// ============ Users ============

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.SubjectsNeeded != nil {
		c.SubjectsNeeded = append([]string{}, u.SubjectsNeeded...)
	}
	if u.SubjectsTaught != nil {
		c.SubjectsTaught = append([]string{}, u.SubjectsTaught...)
	}
	return &c
}

func (s *Store) Create(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.TelegramID == user.TelegramID {
			return fmt.Errorf("create user: telegram id %d already registered", user.TelegramID)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.users[id]), nil
}

func (s *Store) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.TelegramID == telegramID {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) Update(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user not found")
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}
