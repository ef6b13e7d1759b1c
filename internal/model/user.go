package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid checks if the role can take part in matchmaking
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Opposite returns the role a request of this role is paired with.
func (r Role) Opposite() Role {
	if r == RoleStudent {
		return RoleTeacher
	}
	return RoleStudent
}

// User is the profile of a bot user.
type User struct {
	ID             uuid.UUID `json:"id"`
	TelegramID     int64     `json:"telegram_id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	LanguageCode   string    `json:"language_code"`
	Role           Role      `json:"role"` // пусто, пока пользователь не выбрал роль
	GradeLevel     string    `json:"grade_level"`
	SubjectsNeeded []string  `json:"subjects_needed"` // nil = ещё не заполнял
	SubjectsTaught []string  `json:"subjects_taught"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsTeacher checks if the user tutors
func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// MatchSubjects returns the subjects the user wants to match on for its role.
func (u *User) MatchSubjects() []string {
	if u.Role == RoleTeacher {
		return u.SubjectsTaught
	}
	return u.SubjectsNeeded
}

// DisplayName returns a short human readable name.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "пользователь"
}
