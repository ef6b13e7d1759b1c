package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/extension"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/match"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/profile"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Route распределяет callback query по соответствующим обработчикам
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	data := callback.Data

	h.Logger.Info("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID),
		zap.String("user_name", callback.From.FirstName))

	switch {
	case data == callbacktypes.Noop:
		common.AnswerCallback(ctx, b, callback.ID, "")

	// ===== Profile =====
	case strings.HasPrefix(data, callbacktypes.SetRole):
		profile.HandleSetRole(ctx, b, callback, h)

	// ===== Matchmaking =====
	case data == callbacktypes.FindMatch:
		match.HandleFindMatch(ctx, b, callback, h)
	case data == callbacktypes.MyMatch:
		match.HandleMyMatch(ctx, b, callback, h)
	case data == callbacktypes.CancelSearch:
		match.HandleCancelSearch(ctx, b, callback, h)
	case strings.HasPrefix(data, callbacktypes.ConfirmMatch):
		match.HandleConfirm(ctx, b, callback, h)
	case strings.HasPrefix(data, callbacktypes.CancelMatch):
		match.HandleCancel(ctx, b, callback, h)

	// ===== Extensions =====
	case strings.HasPrefix(data, callbacktypes.ExtensionAccept):
		extension.HandleRespond(ctx, b, callback, h, true)
	case strings.HasPrefix(data, callbacktypes.ExtensionDecline):
		extension.HandleRespond(ctx, b, callback, h, false)

	// ===== Unknown Callback =====
	default:
		h.Logger.Warn("Unknown callback",
			zap.String("data", data),
			zap.Int64("user_id", callback.From.ID))
		common.AnswerCallback(ctx, b, callback.ID, "❌ Неизвестная команда")
	}
}
