package common

import (
	"context"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithUser создаёт HandlerContext и загружает пользователя
// При ошибке автоматически отвечает пользователю
func WithUser(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	handler func(*HandlerContext),
) {
	hc := NewHandlerContext(ctx, b, callback, h)

	if err := hc.LoadUser(); err != nil {
		h.Logger.Error("Failed to load user",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Error(err))
		hc.AnswerAlert(ErrorMessage(err))
		return
	}

	handler(hc)
}

// WithUUID дополнительно разбирает ID из callback data
func WithUUID(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	handler func(*HandlerContext, uuid.UUID),
) {
	id, err := ParseUUIDFromCallback(callback.Data)
	if err != nil {
		h.Logger.Error("Failed to parse callback id",
			zap.String("data", callback.Data),
			zap.Error(err))
		AnswerCallbackAlert(ctx, b, callback.ID, ErrorMessage(err))
		return
	}

	WithUser(ctx, b, callback, h, func(hc *HandlerContext) {
		handler(hc, id)
	})
}
