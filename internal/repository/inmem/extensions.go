package inmem

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
)

// ============ Extensions ============

func cloneExtension(e *model.Extension) *model.Extension {
	if e == nil {
		return nil
	}
	c := *e
	if e.ExpiresAt != nil {
		t := *e.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func (s *Store) CreateExtension(ctx context.Context, ext *model.Extension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ext.Status == "" {
		ext.Status = model.ExtensionStatusPending
	}
	if err := model.Validate(ext); err != nil {
		return err
	}
	if ext.ID == uuid.Nil {
		ext.ID = uuid.New()
	}
	if ext.CreatedAt.IsZero() {
		ext.CreatedAt = s.now()
	}
	s.extensions[ext.ID] = cloneExtension(ext)
	return nil
}

func (s *Store) GetExtension(ctx context.Context, id uuid.UUID) (*model.Extension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneExtension(s.extensions[id]), nil
}

func (s *Store) RespondExtension(ctx context.Context, id uuid.UUID, status model.ExtensionStatus, expiresAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.extensions[id]
	if !ok || e.Status != model.ExtensionStatusPending {
		return false, nil
	}
	e.Status = status
	if expiresAt != nil {
		t := *expiresAt
		e.ExpiresAt = &t
	}
	return true, nil
}

func (s *Store) HasActiveExtension(ctx context.Context, studentID uuid.UUID, subject, gradeLevel string, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.extensions {
		if e.StudentID == studentID &&
			strings.EqualFold(e.Subject, subject) &&
			strings.EqualFold(e.GradeLevel, gradeLevel) &&
			e.IsActiveAt(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetPendingExtensionsByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Extension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Extension
	for _, e := range s.extensions {
		if e.StudentID == studentID && e.IsPending() {
			out = append(out, cloneExtension(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
