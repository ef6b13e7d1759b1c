package callbacks

import (
	"context"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler обертка для callbacktypes.Handler с методами
type Handler struct {
	*callbacktypes.Handler
}

// NewHandler создаёт новый обработчик callbacks с зависимостями
func NewHandler(
	userService *service.UserService,
	extensionService *service.ExtensionService,
	coordinator *matchmaking.Coordinator,
	notifier callbacktypes.Notifier,
	stateManager callbacktypes.StateManager,
	logger *zap.Logger,
	handleFindMatch func(ctx context.Context, b *bot.Bot, update *models.Update),
	handleMyMatch func(ctx context.Context, b *bot.Bot, update *models.Update),
) *Handler {
	inner := &callbacktypes.Handler{
		UserService:      userService,
		ExtensionService: extensionService,
		Coordinator:      coordinator,
		Notifier:         notifier,
		StateManager:     stateManager,
		Logger:           logger,
		HandleFindMatch:  handleFindMatch,
		HandleMyMatch:    handleMyMatch,
	}
	return &Handler{Handler: inner}
}

// HandleCallbackQuery - главный обработчик callback queries
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	callback := update.CallbackQuery

	h.Logger.Debug("Callback received",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID),
	)

	// Вызываем роутер
	Route(ctx, b, callback, h.Handler)
}
