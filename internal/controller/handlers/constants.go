package handlers

// Константы валидации ввода
const (
	// Класс/уровень
	GradeMaxLength = 50

	// Предмет
	SubjectMaxLength = 100

	// Причина продления
	ExtensionReasonMaxLength = 500
)
