package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Helper functions для всех callback handlers

// AnswerCallback отвечает на callback query (без alert)
func AnswerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       false,
	})
}

// AnswerCallbackAlert отвечает на callback query с alert (всплывающее окно)
func AnswerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// GetMessageFromCallback извлекает сообщение из callback query
func GetMessageFromCallback(callback *models.CallbackQuery) *models.Message {
	if callback.Message.Message != nil {
		return callback.Message.Message
	}
	return nil
}

// ParseUUIDFromCallback извлекает ID из callback data
// Например: "confirm_match:6f1c..." -> uuid
func ParseUUIDFromCallback(data string) (uuid.UUID, error) {
	_, raw, ok := strings.Cut(data, ":")
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidFormat, data)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return id, nil
}

// ParseValueFromCallback возвращает часть callback data после префикса
func ParseValueFromCallback(data string) (string, error) {
	_, value, ok := strings.Cut(data, ":")
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, data)
	}
	return value, nil
}

// IsMessageNotModifiedError ошибка Telegram при редактировании без изменений
func IsMessageNotModifiedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
