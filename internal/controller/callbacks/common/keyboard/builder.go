package keyboard

import (
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Builder собирает inline клавиатуру по рядам
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Row добавляет ряд; пустые ряды Telegram отклоняет, поэтому они пропускаются
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// RowIf добавляет ряд только при выполненном условии
func (b *Builder) RowIf(ok bool, buttons ...models.InlineKeyboardButton) *Builder {
	if ok {
		b.Row(buttons...)
	}
	return b
}

func (b *Builder) Build() *models.InlineKeyboardMarkup {
	rows := b.rows
	if rows == nil {
		rows = [][]models.InlineKeyboardButton{}
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// Button кнопка с callback data
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: callbackData}
}

// ActionButton кнопка действия над матчем или продлением: callback data это
// префикс действия и ID записи
func ActionButton(text, action string, id uuid.UUID) models.InlineKeyboardButton {
	return Button(text, action+id.String())
}

// CallButton ссылка на комнату звонка
func CallButton(url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: "📞 Перейти к звонку", URL: url}
}
