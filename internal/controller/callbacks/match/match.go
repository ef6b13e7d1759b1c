package match

import (
	"context"
	"errors"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ========================
// Match Handlers
// ========================
// Кнопки под сообщениями о найденной паре

// HandleFindMatch запускает поиск из кнопки
func HandleFindMatch(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.AnswerCallback(ctx, b, callback.ID, "🔎 Ищем...")
	if h.HandleFindMatch != nil {
		h.HandleFindMatch(ctx, b, &models.Update{CallbackQuery: callback})
	}
}

// HandleMyMatch показывает текущую пару из кнопки
func HandleMyMatch(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.AnswerCallback(ctx, b, callback.ID, "")
	if h.HandleMyMatch != nil {
		h.HandleMyMatch(ctx, b, &models.Update{CallbackQuery: callback})
	}
}

// HandleCancelSearch останавливает поиск
func HandleCancelSearch(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		n, err := h.Coordinator.CancelSearch(ctx, hc.User.ID)
		if err != nil {
			h.Logger.Error("Failed to cancel search", zap.Error(err))
			hc.AnswerAlert(common.ErrorMessage(err))
			return
		}

		text := "✅ Поиск остановлен."
		if n == 0 {
			text = "ℹ️ Поиск уже не активен."
		}
		if err := hc.EditMessage(text, keyboard.FindMatch()); err != nil {
			h.Logger.Warn("Failed to edit message", zap.Error(err))
		}
		hc.Answer("")
	})
}

// HandleConfirm подтверждает участие в паре: confirm_match:<id>
func HandleConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUUID(ctx, b, callback, h, func(hc *common.HandlerContext, matchID uuid.UUID) {
		m, err := h.Coordinator.Confirm(ctx, matchID, hc.User.ID)
		if err != nil {
			logMatchError(h, "confirm match", matchID, err)
			hc.AnswerAlert(common.ErrorMessage(err))
			return
		}

		// Сообщение с кнопками больше не нужно: новое состояние придёт через подписку
		if err := hc.EditMessage("✅ Вы подтвердили участие.", nil); err != nil {
			h.Logger.Warn("Failed to edit message", zap.Error(err))
		}

		if matchmaking.IsFullyConfirmed(m) {
			hc.Answer("🎉 Оба подтвердили! Скоро придёт ссылка на звонок.")
			return
		}
		hc.Answer("⏳ Ждём партнёра")
	})
}

// HandleCancel отклоняет или отменяет пару: cancel_match:<id>
func HandleCancel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUUID(ctx, b, callback, h, func(hc *common.HandlerContext, matchID uuid.UUID) {
		err := h.Coordinator.Cancel(ctx, hc.User.ID, matchmaking.CancelParams{MatchID: matchID})
		if err != nil {
			logMatchError(h, "cancel match", matchID, err)
			hc.AnswerAlert(common.ErrorMessage(err))
			return
		}

		if err := hc.EditMessage("❌ Пара отменена.", keyboard.FindMatch()); err != nil {
			h.Logger.Warn("Failed to edit message", zap.Error(err))
		}
		hc.Answer("Отменено")
	})
}

func logMatchError(h *callbacktypes.Handler, op string, matchID uuid.UUID, err error) {
	level := h.Logger.Warn
	if matchmaking.IsStoreError(err) || !isDomainError(err) {
		level = h.Logger.Error
	}
	level("Match action failed",
		zap.String("op", op),
		zap.String("match_id", matchID.String()),
		zap.Error(err))
}

func isDomainError(err error) bool {
	for _, target := range []error{
		matchmaking.ErrNotParticipant,
		matchmaking.ErrMatchClosed,
		matchmaking.ErrNotFound,
		matchmaking.ErrAlreadyMatched,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
