package extension

import (
	"context"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/formatting"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleRespond ученик отвечает на продление: ext_accept:<id> | ext_decline:<id>
func HandleRespond(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler, accept bool) {
	common.WithUUID(ctx, b, callback, h, func(hc *common.HandlerContext, extensionID uuid.UUID) {
		ext, err := h.ExtensionService.RespondExtension(ctx, hc.User.ID, extensionID, accept)
		if err != nil {
			h.Logger.Warn("Failed to respond to extension",
				zap.String("extension_id", extensionID.String()),
				zap.Bool("accept", accept),
				zap.Error(err))
			hc.AnswerAlert(common.ErrorMessage(err))
			return
		}

		text := formatting.FormatExtension(ext)
		if err := hc.EditMessage(text, nil); err != nil {
			h.Logger.Warn("Failed to edit extension message", zap.Error(err))
		}

		// Сообщаем репетитору о решении ученика
		if err := h.Notifier.NotifyUsers(ctx, []uuid.UUID{ext.TutorID}, "📬 Ученик ответил на запрос\n\n"+text, nil); err != nil {
			h.Logger.Error("Failed to notify tutor about extension answer",
				zap.String("extension_id", ext.ID.String()),
				zap.Error(err))
		}

		if accept {
			hc.Answer("✅ Продление принято")
			return
		}
		hc.Answer("🚫 Продление отклонено")
	})
}
