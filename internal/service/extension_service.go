package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultExtensionDuration срок действия принятого продления
const DefaultExtensionDuration = 7 * 24 * time.Hour

var (
	ErrExtensionNotFound   = errors.New("extension not found")
	ErrExtensionAnswered   = errors.New("extension already answered")
	ErrNotExtensionStudent = errors.New("extension belongs to another student")
	ErrNotMatchTutor       = errors.New("only the tutor of the match can request an extension")
	ErrMatchNotActive      = errors.New("match is not active")
	ErrEmptyReason         = errors.New("extension reason is empty")
)

// ExtensionRepository хранилище продлений
type ExtensionRepository interface {
	CreateExtension(ctx context.Context, ext *model.Extension) error
	GetExtension(ctx context.Context, id uuid.UUID) (*model.Extension, error)
	RespondExtension(ctx context.Context, id uuid.UUID, status model.ExtensionStatus, expiresAt *time.Time) (bool, error)
	HasActiveExtension(ctx context.Context, studentID uuid.UUID, subject, gradeLevel string, now time.Time) (bool, error)
	GetPendingExtensionsByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Extension, error)
}

// MatchReader источник матчей для проверки прав на продление; nil, nil если матча нет
type MatchReader interface {
	GetMatch(ctx context.Context, id uuid.UUID) (*model.Match, error)
}

type ExtensionService struct {
	extRepo  ExtensionRepository
	matches  MatchReader
	duration time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewExtensionService(extRepo ExtensionRepository, matches MatchReader, duration time.Duration, logger *zap.Logger) *ExtensionService {
	if duration <= 0 {
		duration = DefaultExtensionDuration
	}
	return &ExtensionService{
		extRepo:  extRepo,
		matches:  matches,
		duration: duration,
		logger:   logger,
		now:      time.Now,
	}
}

// RequestExtension репетитор запрашивает продление для ученика текущего матча
func (s *ExtensionService) RequestExtension(ctx context.Context, tutorID, matchID uuid.UUID, reason string) (*model.Extension, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}

	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	if match == nil {
		return nil, ErrMatchNotActive
	}
	if match.TutorID != tutorID {
		return nil, ErrNotMatchTutor
	}
	if !match.IsActive() {
		return nil, ErrMatchNotActive
	}

	ext := &model.Extension{
		StudentID:  match.StudentID,
		TutorID:    tutorID,
		MatchID:    matchID,
		Subject:    match.Subject,
		GradeLevel: match.GradeLevel,
		Reason:     reason,
		Status:     model.ExtensionStatusPending,
	}

	if err := s.extRepo.CreateExtension(ctx, ext); err != nil {
		return nil, fmt.Errorf("create extension: %w", err)
	}

	s.logger.Info("Extension requested",
		zap.String("extension_id", ext.ID.String()),
		zap.String("match_id", matchID.String()),
		zap.String("tutor_id", tutorID.String()),
		zap.String("student_id", ext.StudentID.String()),
	)

	return ext, nil
}

// RespondExtension ученик принимает или отклоняет продление
func (s *ExtensionService) RespondExtension(ctx context.Context, studentID, extensionID uuid.UUID, accept bool) (*model.Extension, error) {
	ext, err := s.extRepo.GetExtension(ctx, extensionID)
	if err != nil {
		return nil, fmt.Errorf("get extension: %w", err)
	}
	if ext == nil {
		return nil, ErrExtensionNotFound
	}
	if ext.StudentID != studentID {
		return nil, ErrNotExtensionStudent
	}

	status := model.ExtensionStatusDeclined
	var expiresAt *time.Time
	if accept {
		status = model.ExtensionStatusAccepted
		t := s.now().Add(s.duration)
		expiresAt = &t
	}

	ok, err := s.extRepo.RespondExtension(ctx, extensionID, status, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("respond extension: %w", err)
	}
	if !ok {
		return nil, ErrExtensionAnswered
	}

	ext.Status = status
	ext.ExpiresAt = expiresAt

	s.logger.Info("Extension answered",
		zap.String("extension_id", extensionID.String()),
		zap.String("student_id", studentID.String()),
		zap.String("status", string(status)),
	)

	return ext, nil
}

// HasActiveExtension проверяет, блокирует ли продление завершение матча
func (s *ExtensionService) HasActiveExtension(ctx context.Context, studentID uuid.UUID, subject, gradeLevel string) (bool, error) {
	return s.extRepo.HasActiveExtension(ctx, studentID, subject, gradeLevel, s.now())
}

// GetPendingForStudent получает продления, ожидающие ответа ученика
func (s *ExtensionService) GetPendingForStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Extension, error) {
	return s.extRepo.GetPendingExtensionsByStudent(ctx, studentID)
}
