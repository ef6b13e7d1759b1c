package formatting

import "github.com/Freeeeeet/tutor_match_bot/internal/model"

// StatusDisplay представляет отображение статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

var unknownStatus = StatusDisplay{"❓", "Неизвестно"}

// GetMatchStatusDisplay возвращает emoji и текст для статуса матча
func GetMatchStatusDisplay(m *model.Match) StatusDisplay {
	if m.IsActivatable() {
		return StatusDisplay{"✅", "Подтверждена обеими сторонами"}
	}

	displays := map[model.MatchStatus]StatusDisplay{
		model.MatchStatusActive:    {"⏳", "Ожидает подтверждения"},
		model.MatchStatusCompleted: {"✔️", "Завершена"},
		model.MatchStatusCancelled: {"❌", "Отменена"},
	}

	if display, ok := displays[m.Status]; ok {
		return display
	}

	return unknownStatus
}

// GetRequestStatusDisplay возвращает emoji и текст для статуса заявки
func GetRequestStatusDisplay(status model.RequestStatus) StatusDisplay {
	displays := map[model.RequestStatus]StatusDisplay{
		model.RequestStatusSearching: {"🔎", "Идёт поиск"},
		model.RequestStatusMatched:   {"🤝", "Пара найдена"},
		model.RequestStatusCancelled: {"⚫️", "Отменена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return unknownStatus
}

// GetExtensionStatusDisplay возвращает emoji и текст для статуса продления
func GetExtensionStatusDisplay(status model.ExtensionStatus) StatusDisplay {
	displays := map[model.ExtensionStatus]StatusDisplay{
		model.ExtensionStatusPending:  {"⏳", "Ожидает ответа"},
		model.ExtensionStatusAccepted: {"✅", "Принято"},
		model.ExtensionStatusDeclined: {"🚫", "Отклонено"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return unknownStatus
}

// RoleName название роли для отображения
func RoleName(role model.Role) string {
	switch role {
	case model.RoleStudent:
		return "🎒 Ученик"
	case model.RoleTeacher:
		return "🎓 Репетитор"
	default:
		return "не выбрана"
	}
}
