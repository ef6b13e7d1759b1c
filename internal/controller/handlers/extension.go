package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/state"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleExtend обрабатывает /extend [причина] - репетитор просит ученика продлить занятия
func (h *Handlers) HandleExtend(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID, ok := h.requireRole(ctx, b, update)
	if !ok {
		return
	}

	if !user.IsTeacher() {
		h.sendError(ctx, b, chatID, "❌ Эта команда доступна только репетиторам.")
		return
	}

	m, err := h.coordinator.CurrentMatch(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "current match", err)
		return
	}
	if m == nil {
		h.sendError(ctx, b, chatID, "❌ У вас нет активной пары.")
		return
	}

	reason := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/extend"))
	if reason != "" {
		h.submitExtension(ctx, b, chatID, user, m.ID, reason)
		return
	}

	telegramID := update.Message.From.ID
	h.stateManager.SetState(telegramID, state.StateEnterExtensionReason)
	h.stateManager.SetData(telegramID, state.DataMatchID, m.ID.String())

	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("📝 Продление занятий по предмету «%s»\n\n"+
			"Напишите ученику причину продления (до %d символов).\n\n"+
			"Для отмены используйте /cancel", html.EscapeString(m.Subject), ExtensionReasonMaxLength))
}

// handleExtensionReasonStep обрабатывает ввод причины продления
func (h *Handlers) handleExtensionReasonStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	raw, ok := h.stateManager.GetData(telegramID, state.DataMatchID)
	matchID, err := uuid.Parse(fmt.Sprint(raw))
	if !ok || err != nil {
		h.logger.Error("Missing match for extension dialog",
			zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "❌ Ошибка: данные не найдены. Начните заново через /extend")
		return
	}

	user, _, ok := h.requireUser(ctx, b, update)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	h.submitExtension(ctx, b, chatID, user, matchID, update.Message.Text)
}

func (h *Handlers) submitExtension(ctx context.Context, b *bot.Bot, chatID int64, tutor *model.User, matchID uuid.UUID, reason string) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > ExtensionReasonMaxLength {
		h.sendError(ctx, b, chatID,
			fmt.Sprintf("❌ Слишком длинная причина. Максимум %d символов.\n\nПопробуйте ещё раз:", ExtensionReasonMaxLength))
		return
	}

	ext, err := h.extensionService.RequestExtension(ctx, tutor.ID, matchID, reason)
	if err != nil {
		h.replyError(ctx, b, chatID, "request extension", err)
		return
	}
	h.stateManager.ClearState(tutor.TelegramID)

	if err := h.notifier.NotifyUsers(ctx, []uuid.UUID{ext.StudentID}, formatting.FormatExtension(ext), keyboard.Extension(ext.ID)); err != nil {
		h.logger.Error("Failed to deliver extension request",
			zap.String("extension_id", ext.ID.String()),
			zap.Error(err))
	}

	h.sendMessage(ctx, b, chatID, "✅ Запрос на продление отправлен ученику.\n\n"+formatting.FormatExtension(ext))
}
