package formatting

import (
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
)

// FormatMatch форматирует матч с точки зрения участника viewerID
func FormatMatch(m *model.Match, viewerID uuid.UUID, partner *model.User) string {
	display := GetMatchStatusDisplay(m)

	partnerName := "—"
	if partner != nil {
		partnerName = html.EscapeString(partner.DisplayName())
	}

	partnerRole := "Репетитор"
	if m.TutorID == viewerID {
		partnerRole = "Ученик"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>Пара</b>\n\n", display.Emoji)
	fmt.Fprintf(&sb, "📚 Предмет: %s\n", html.EscapeString(m.Subject))
	fmt.Fprintf(&sb, "🎯 Уровень: %s\n", html.EscapeString(m.GradeLevel))
	fmt.Fprintf(&sb, "👤 %s: %s\n", partnerRole, partnerName)
	fmt.Fprintf(&sb, "📊 Статус: %s\n", display.Text)

	if m.IsActive() {
		other, _ := m.OtherUserID(viewerID)
		fmt.Fprintf(&sb, "\n%s Вы  %s Партнёр",
			confirmMark(m.ConfirmedBy(viewerID)),
			confirmMark(m.ConfirmedBy(other)),
		)
	}

	return sb.String()
}

// FormatProfile форматирует профиль пользователя
func FormatProfile(u *model.User) string {
	grade := u.GradeLevel
	if grade == "" {
		grade = "не указан"
	}

	subjects := u.SubjectsNeeded
	subjectsLabel := "Нужные предметы"
	if u.IsTeacher() {
		subjects = u.SubjectsTaught
		subjectsLabel = "Преподаю"
	}
	subjectsText := "не указаны"
	if len(subjects) > 0 {
		subjectsText = strings.Join(subjects, ", ")
	}

	return fmt.Sprintf(
		"👤 <b>%s</b>\n\n"+
			"Роль: %s\n"+
			"Уровень: %s\n"+
			"%s: %s",
		html.EscapeString(u.DisplayName()),
		RoleName(u.Role),
		html.EscapeString(grade),
		subjectsLabel,
		html.EscapeString(subjectsText),
	)
}

// FormatExtension форматирует запрос на продление
func FormatExtension(ext *model.Extension) string {
	display := GetExtensionStatusDisplay(ext.Status)

	text := fmt.Sprintf(
		"%s <b>Продление занятий</b>\n\n"+
			"📚 Предмет: %s\n"+
			"🎯 Уровень: %s\n"+
			"💬 Причина: %s\n"+
			"📊 Статус: %s",
		display.Emoji,
		html.EscapeString(ext.Subject),
		html.EscapeString(ext.GradeLevel),
		html.EscapeString(ext.Reason),
		display.Text,
	)
	if ext.ExpiresAt != nil {
		text += "\n⏰ До: " + ext.ExpiresAt.Format("02.01.2006 15:04")
	}
	return text
}

func confirmMark(ok bool) string {
	if ok {
		return "✅"
	}
	return "⏳"
}
