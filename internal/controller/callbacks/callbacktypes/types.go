package callbacktypes

import (
	"context"

	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/Freeeeeet/tutor_match_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

// StateManager интерфейс для управления состоянием пользователей
type StateManager interface {
	ClearState(telegramID int64)
	GetState(telegramID int64) UserState
	SetState(telegramID int64, state UserState)
	SetData(telegramID int64, key string, value interface{})
	GetData(telegramID int64, key string) (interface{}, bool)
	GetAllData(telegramID int64) map[string]interface{}
}

// Notifier доставляет изменения матчей пользователям
type Notifier interface {
	// Watch подписывает пользователя на изменения его матчей
	Watch(user *model.User) error
	// CallURL ссылка на звонок для матча
	CallURL(matchID uuid.UUID) string
	// NotifyUsers отправляет одно сообщение нескольким пользователям
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, text string, keyboard *models.InlineKeyboardMarkup) error
}

// Handler содержит общие зависимости для всех callback handlers
type Handler struct {
	UserService      *service.UserService
	ExtensionService *service.ExtensionService
	Coordinator      *matchmaking.Coordinator
	Notifier         Notifier
	StateManager     StateManager
	Logger           *zap.Logger

	// Функции-хэндлеры из основного контроллера
	HandleFindMatch func(ctx context.Context, b *bot.Bot, update *models.Update)
	HandleMyMatch   func(ctx context.Context, b *bot.Bot, update *models.Update)
}
