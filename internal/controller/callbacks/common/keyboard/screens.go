package keyboard

import (
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Role выбор роли
func Role() *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(
			Button("🎒 Я ученик", callbacktypes.SetRole+string(model.RoleStudent)),
			Button("🎓 Я репетитор", callbacktypes.SetRole+string(model.RoleTeacher)),
		).
		Build()
}

// FindMatch кнопка запуска поиска
func FindMatch() *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(Button("🔎 Найти пару", callbacktypes.FindMatch)).
		Build()
}

// Searching клавиатура во время поиска
func Searching() *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(Button("🔄 Проверить", callbacktypes.MyMatch)).
		Row(Button("✖️ Отменить поиск", callbacktypes.CancelSearch)).
		Build()
}

// Match клавиатура матча для участника viewerID. Для закрытых матчей кнопок нет.
func Match(m *model.Match, viewerID uuid.UUID, callURL string) *models.InlineKeyboardMarkup {
	b := NewBuilder()

	switch {
	case m.IsActivatable():
		b.RowIf(callURL != "", CallButton(callURL))
	case m.IsActive() && !m.ConfirmedBy(viewerID):
		b.Row(
			ActionButton("✅ Принять", callbacktypes.ConfirmMatch, m.ID),
			ActionButton("❌ Отклонить", callbacktypes.CancelMatch, m.ID),
		)
	case m.IsActive():
		b.Row(ActionButton("❌ Отменить", callbacktypes.CancelMatch, m.ID))
	default:
		b.Row(Button("🔎 Искать снова", callbacktypes.FindMatch))
	}

	return b.Build()
}

// Extension ответ ученика на продление
func Extension(extensionID uuid.UUID) *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(
			ActionButton("✅ Принять", callbacktypes.ExtensionAccept, extensionID),
			ActionButton("🚫 Отклонить", callbacktypes.ExtensionDecline, extensionID),
		).
		Build()
}
