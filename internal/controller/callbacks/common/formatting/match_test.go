package formatting

import (
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFormatMatchPerspective(t *testing.T) {
	student, tutor := uuid.New(), uuid.New()
	m := &model.Match{
		ID:               uuid.New(),
		StudentID:        student,
		TutorID:          tutor,
		Subject:          "Math",
		GradeLevel:       "10",
		Status:           model.MatchStatusActive,
		StudentConfirmed: true,
	}
	partner := &model.User{FirstName: "<Ann>"}

	forStudent := FormatMatch(m, student, partner)
	assert.Contains(t, forStudent, "Репетитор: &lt;Ann&gt;")
	assert.Contains(t, forStudent, "✅ Вы  ⏳ Партнёр")

	forTutor := FormatMatch(m, tutor, partner)
	assert.Contains(t, forTutor, "Ученик: &lt;Ann&gt;")
	assert.Contains(t, forTutor, "⏳ Вы  ✅ Партнёр")
}

func TestFormatMatchTerminalHidesConfirmations(t *testing.T) {
	m := &model.Match{StudentID: uuid.New(), TutorID: uuid.New(), Status: model.MatchStatusCompleted}
	text := FormatMatch(m, m.StudentID, nil)
	assert.Contains(t, text, "Завершена")
	assert.NotContains(t, text, "Партнёр")
}

func TestFormatExtension(t *testing.T) {
	exp := time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)
	ext := &model.Extension{
		Subject:    "Physics",
		GradeLevel: "9",
		Reason:     "exam prep",
		Status:     model.ExtensionStatusAccepted,
		ExpiresAt:  &exp,
	}
	text := FormatExtension(ext)
	assert.Contains(t, text, "Принято")
	assert.Contains(t, text, "02.01.2026 15:04")
}

func TestRoleName(t *testing.T) {
	assert.Equal(t, "🎒 Ученик", RoleName(model.RoleStudent))
	assert.Equal(t, "🎓 Репетитор", RoleName(model.RoleTeacher))
	assert.Equal(t, "не выбрана", RoleName(""))
}
