package profile

import (
	"context"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleSetRole обрабатывает выбор роли: set_role:student | set_role:teacher
func HandleSetRole(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		value, err := common.ParseValueFromCallback(callback.Data)
		if err != nil {
			hc.AnswerAlert(common.ErrorMessage(err))
			return
		}

		user, err := h.UserService.SetRole(ctx, hc.User.ID, model.Role(value))
		if err != nil {
			h.Logger.Error("Failed to set role", zap.Error(err))
			hc.AnswerAlert(common.ErrorMessage(err))
			return
		}

		next := "Теперь укажите предметы, которые вам нужны: /subjects"
		if user.IsTeacher() {
			next = "Теперь укажите предметы, которые вы преподаёте: /subjects"
		}

		if err := hc.EditMessage("✅ Роль: "+formatting.RoleName(user.Role)+"\n\n"+next+"\nУровень: /grade", nil); err != nil {
			h.Logger.Warn("Failed to edit role message", zap.Error(err))
		}
		hc.Answer("Роль сохранена")
	})
}
