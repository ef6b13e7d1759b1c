package common

import (
	"errors"

	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/service"
)

// Общие ошибки для обработчиков
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNoMessage     = errors.New("no message in callback")
	ErrInvalidFormat = errors.New("invalid callback format")
)

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, service.ErrUserNotFound):
		return "❌ Пользователь не найден. Используйте /start"
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	case errors.Is(err, service.ErrNoRole):
		return "❌ Сначала выберите роль: /role"
	case errors.Is(err, service.ErrInvalidRole):
		return "❌ Неизвестная роль"
	case errors.Is(err, service.ErrTooMany):
		return "❌ Слишком много предметов"
	case errors.Is(err, matchmaking.ErrInvalidProfile):
		return "❌ Профиль не заполнен: нужна роль и хотя бы один предмет.\n\n/role, /subjects"
	case errors.Is(err, matchmaking.ErrAlreadyMatched):
		return "⚠️ У вас уже есть подтверждённая пара. Посмотреть: /mymatch"
	case errors.Is(err, matchmaking.ErrNotParticipant):
		return "❌ Вы не участник этой пары"
	case errors.Is(err, matchmaking.ErrBlocked):
		return "⏸ Завершение недоступно: у ученика действует продление"
	case errors.Is(err, matchmaking.ErrNotFound):
		return "❌ Не найдено"
	case errors.Is(err, matchmaking.ErrMatchClosed):
		return "❌ Эта пара уже закрыта"
	case errors.Is(err, matchmaking.ErrNoActiveMatch):
		return "❌ У вас нет активной пары"
	case errors.Is(err, service.ErrExtensionNotFound):
		return "❌ Продление не найдено"
	case errors.Is(err, service.ErrExtensionAnswered):
		return "ℹ️ На это продление уже ответили"
	case errors.Is(err, service.ErrNotExtensionStudent):
		return "❌ Это продление адресовано другому ученику"
	case errors.Is(err, service.ErrNotMatchTutor):
		return "❌ Запросить продление может только репетитор пары"
	case errors.Is(err, service.ErrMatchNotActive):
		return "❌ Пара уже не активна"
	case errors.Is(err, service.ErrEmptyReason):
		return "❌ Укажите причину продления"
	case matchmaking.IsStoreError(err):
		return "❌ Хранилище недоступно. Попробуйте позже."
	default:
		return "❌ Произошла ошибка"
	}
}
