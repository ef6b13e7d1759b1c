package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleFindMatch обрабатывает команду /findmatch и кнопку «Найти пару»
func (h *Handlers) HandleFindMatch(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID, ok := h.requireRole(ctx, b, update)
	if !ok {
		return
	}

	res, err := h.coordinator.FindMatch(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "find match", err)
		return
	}

	if res.Match != nil {
		h.sendMessage(ctx, b, chatID, "🤝 Пара найдена! Подтвердите участие в сообщении с деталями.")
		return
	}

	subjects := html.EscapeString(strings.Join(res.Request.Subjects, ", "))
	h.sendWithKeyboard(ctx, b, chatID,
		fmt.Sprintf("🔎 Ищем пару\n\n📚 Предметы: %s\n🎯 Уровень: %s\n\nМы сообщим, как только найдётся подходящий %s.",
			subjects, html.EscapeString(res.Request.GradeLevel), partnerNoun(user.Role)),
		keyboard.Searching())
}

// HandleMyMatch показывает текущую пару или статус поиска
func (h *Handlers) HandleMyMatch(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	m, err := h.coordinator.CurrentMatch(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "current match", err)
		return
	}

	if m != nil {
		partner := h.partnerOf(ctx, m, user.ID)
		callURL := ""
		if matchmaking.IsFullyConfirmed(m) && h.notifier != nil {
			callURL = h.notifier.CallURL(m.ID)
		}
		h.sendWithKeyboard(ctx, b, chatID, formatting.FormatMatch(m, user.ID, partner), keyboard.Match(m, user.ID, callURL))
		h.showPendingExtensions(ctx, b, chatID, user)
		return
	}

	req, err := h.coordinator.SearchingRequest(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "searching request", err)
		return
	}

	if req != nil {
		display := formatting.GetRequestStatusDisplay(req.Status)
		h.sendWithKeyboard(ctx, b, chatID,
			fmt.Sprintf("%s %s с %s\n\n📚 Предметы: %s",
				display.Emoji, display.Text, req.CreatedAt.Format("15:04"), html.EscapeString(strings.Join(req.Subjects, ", "))),
			keyboard.Searching())
		return
	}

	h.sendWithKeyboard(ctx, b, chatID, "ℹ️ У вас нет активной пары и поиск не запущен.", keyboard.FindMatch())
	h.showPendingExtensions(ctx, b, chatID, user)
}

// HandleCancelMatch отменяет поиск и неподтверждённую пару
func (h *Handlers) HandleCancelMatch(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	cancelled, err := h.coordinator.CancelSearch(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "cancel search", err)
		return
	}

	m, err := h.coordinator.CurrentMatch(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "current match", err)
		return
	}

	switch {
	case m != nil && matchmaking.IsFullyConfirmed(m):
		h.sendMessage(ctx, b, chatID, "ℹ️ Пара уже подтверждена обеими сторонами. Чтобы закончить занятие, используйте /endmatch")
		return
	case m != nil:
		if err := h.coordinator.Cancel(ctx, user.ID, matchmaking.CancelParams{MatchID: m.ID}); err != nil {
			h.replyError(ctx, b, chatID, "cancel match", err)
			return
		}
		h.sendWithKeyboard(ctx, b, chatID, "✅ Пара отменена.", keyboard.FindMatch())
	case cancelled > 0:
		h.sendWithKeyboard(ctx, b, chatID, "✅ Поиск остановлен.", keyboard.FindMatch())
	default:
		h.sendMessage(ctx, b, chatID, "❌ Нечего отменять: нет ни поиска, ни пары.")
	}
}

// HandleEndMatch завершает подтверждённую пару
func (h *Handlers) HandleEndMatch(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	m, err := h.coordinator.EndActiveMatch(ctx, user.ID)
	if err != nil {
		if errors.Is(err, matchmaking.ErrBlocked) {
			h.logger.Info("End of match blocked",
				zap.String("user_id", user.ID.String()))
		}
		h.replyError(ctx, b, chatID, "end match", err)
		return
	}

	h.sendWithKeyboard(ctx, b, chatID,
		fmt.Sprintf("✔️ Занятие по предмету «%s» завершено.", html.EscapeString(m.Subject)),
		keyboard.FindMatch())
}

func (h *Handlers) partnerOf(ctx context.Context, m *model.Match, viewerID uuid.UUID) *model.User {
	otherID, ok := m.OtherUserID(viewerID)
	if !ok {
		return nil
	}
	partner, err := h.userService.GetByID(ctx, otherID)
	if err != nil {
		h.logger.Warn("Failed to load match partner",
			zap.String("match_id", m.ID.String()),
			zap.Error(err))
		return nil
	}
	return partner
}

func (h *Handlers) showPendingExtensions(ctx context.Context, b *bot.Bot, chatID int64, user *model.User) {
	if user.IsTeacher() || h.extensionService == nil {
		return
	}

	pending, err := h.extensionService.GetPendingForStudent(ctx, user.ID)
	if err != nil {
		h.logger.Warn("Failed to load pending extensions",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return
	}

	for _, ext := range pending {
		h.sendWithKeyboard(ctx, b, chatID, formatting.FormatExtension(ext), keyboard.Extension(ext.ID))
	}
}

func partnerNoun(role model.Role) string {
	if role == model.RoleTeacher {
		return "ученик"
	}
	return "репетитор"
}
