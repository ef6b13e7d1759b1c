package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxSubjects ограничение на количество предметов в профиле
const MaxSubjects = 10

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid role")
	ErrNoRole       = errors.New("role is not selected")
	ErrTooMany      = errors.New("too many subjects")
)

// UserRepository хранилище профилей
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type UserService struct {
	userRepo UserRepository
	logger   *zap.Logger
}

func NewUserService(userRepo UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// RegisterUser регистрирует или обновляет пользователя
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode string) (*model.User, error) {
	// Проверяем существует ли пользователь
	existingUser, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	// Если пользователь уже существует, обновляем данные
	if existingUser != nil {
		existingUser.Username = username
		existingUser.FirstName = firstName
		existingUser.LastName = lastName
		existingUser.LanguageCode = languageCode

		err = s.userRepo.Update(ctx, existingUser)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}

		s.logger.Info("User updated",
			zap.Int64("telegram_id", telegramID),
			zap.String("username", username),
		)

		return existingUser, nil
	}

	// Создаём нового пользователя, роль выбирается отдельно
	user := &model.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		LanguageCode: languageCode,
	}

	err = s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User registered",
		zap.Int64("telegram_id", telegramID),
		zap.String("user_id", user.ID.String()),
		zap.String("username", username),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile отдаёт профиль для подбора пары
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// SetRole устанавливает роль пользователя (ученик или репетитор)
func (s *UserService) SetRole(ctx context.Context, userID uuid.UUID, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}

	s.logger.Info("User role set",
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)),
	)

	return user, nil
}

// SetGradeLevel устанавливает класс/уровень
func (s *UserService) SetGradeLevel(ctx context.Context, userID uuid.UUID, grade string) (*model.User, error) {
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.GradeLevel = strings.TrimSpace(grade)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update grade level: %w", err)
	}

	s.logger.Info("User grade level set",
		zap.String("user_id", userID.String()),
		zap.String("grade_level", user.GradeLevel),
	)

	return user, nil
}

// SetSubjects сохраняет предметы: нужные ученику или преподаваемые репетитором
func (s *UserService) SetSubjects(ctx context.Context, userID uuid.UUID, subjects []string) (*model.User, error) {
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.Role.Valid() {
		return nil, ErrNoRole
	}
	if len(subjects) > MaxSubjects {
		return nil, ErrTooMany
	}

	if subjects == nil {
		subjects = []string{}
	}
	if user.IsTeacher() {
		user.SubjectsTaught = subjects
	} else {
		user.SubjectsNeeded = subjects
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update subjects: %w", err)
	}

	s.logger.Info("User subjects set",
		zap.String("user_id", userID.String()),
		zap.String("role", string(user.Role)),
		zap.Strings("subjects", subjects),
	)

	return user, nil
}

func (s *UserService) mustGet(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ParseSubjects разбирает список предметов из текста: через запятую или с новой строки
func ParseSubjects(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	subjects := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			subjects = append(subjects, f)
		}
	}
	return subjects
}
