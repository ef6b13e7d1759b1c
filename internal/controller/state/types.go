package state

import (
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
)

// UserState состояние диалога, общее с callbacktypes
type UserState = callbacktypes.UserState

const (
	StateNone UserState = "" // Нет активного состояния

	// Заполнение профиля
	StateEnterGrade    UserState = "enter_grade"
	StateEnterSubjects UserState = "enter_subjects"

	// Запрос продления репетитором
	StateEnterExtensionReason UserState = "enter_extension_reason"
)

// Ключи временных данных диалога
const (
	DataMatchID = "match_id"
)

// DefaultDialogTTL брошенный диалог сбрасывается через это время
const DefaultDialogTTL = 30 * time.Minute

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State     UserState
	Data      map[string]interface{} // Временные данные для текущего диалога
	UpdatedAt time.Time
}
