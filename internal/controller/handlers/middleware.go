package handlers

import (
	"context"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// origin возвращает отправителя и чат для команды или нажатия кнопки
func origin(update *models.Update) (telegramID, chatID int64, ok bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.Chat.ID, true
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		chatID = cb.From.ID
		if msg := common.GetMessageFromCallback(cb); msg != nil {
			chatID = msg.Chat.ID
		}
		return cb.From.ID, chatID, true
	}
	return 0, 0, false
}

// requireUser проверяет что пользователь существует
// Возвращает user и true если OK, nil и false если нет
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, int64, bool) {
	telegramID, chatID, ok := origin(update)
	if !ok {
		return nil, 0, false
	}

	user, err := h.userService.GetByTelegramID(ctx, telegramID)

	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return nil, chatID, false
	}

	if user == nil {
		h.sendError(ctx, b, chatID, "❌ Пользователь не найден. Используйте /start для регистрации.")
		return nil, chatID, false
	}

	h.watch(user)
	return user, chatID, true
}

// requireRole проверяет что пользователь выбрал роль
func (h *Handlers) requireRole(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, int64, bool) {
	user, chatID, ok := h.requireUser(ctx, b, update)
	if !ok {
		return nil, chatID, false
	}

	if !user.Role.Valid() {
		h.sendWithKeyboard(ctx, b, chatID, "👋 Сначала выберите роль:", keyboard.Role())
		return nil, chatID, false
	}

	return user, chatID, true
}

// watch подписывает пользователя на изменения матчей
func (h *Handlers) watch(user *model.User) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Watch(user); err != nil {
		h.logger.Warn("Failed to watch user matches",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}
}

// replyError логирует ошибку и отправляет пользователю понятный текст
func (h *Handlers) replyError(ctx context.Context, b *bot.Bot, chatID int64, op string, err error) {
	h.logger.Warn("Command failed",
		zap.String("op", op),
		zap.Int64("chat_id", chatID),
		zap.Error(err),
	)
	h.sendError(ctx, b, chatID, common.ErrorMessage(err))
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	h.sendWithKeyboard(ctx, b, chatID, text, nil)
}

// sendWithKeyboard отправляет HTML-сообщение с inline клавиатурой
func (h *Handlers) sendWithKeyboard(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}

	_, err := b.SendMessage(ctx, params)
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
