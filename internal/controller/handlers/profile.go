package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/state"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/Freeeeeet/tutor_match_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleRole показывает выбор роли
func (h *Handlers) HandleRole(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	text := fmt.Sprintf("Текущая роль: %s\n\nКто вы?", formatting.RoleName(user.Role))
	h.sendWithKeyboard(ctx, b, chatID, text, keyboard.Role())
}

// HandleProfile показывает профиль
func (h *Handlers) HandleProfile(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	h.sendMessage(ctx, b, chatID, formatting.FormatProfile(user)+"\n\nИзменить: /role, /grade, /subjects")
}

// HandleGrade начинает диалог ввода класса/уровня
func (h *Handlers) HandleGrade(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, chatID, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	h.stateManager.SetState(update.Message.From.ID, state.StateEnterGrade)

	h.sendMessage(ctx, b, chatID,
		"🎯 Укажите класс или уровень.\n\n"+
			"Например: 9, 11, A2, университет\n"+
			"Отправьте «-», чтобы подходил любой уровень.\n\n"+
			"Для отмены используйте /cancel")
}

// handleGradeStep обрабатывает ввод уровня
func (h *Handlers) handleGradeStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	grade := strings.TrimSpace(update.Message.Text)

	if grade == "-" {
		grade = ""
	}
	if utf8.RuneCountInString(grade) > GradeMaxLength {
		h.sendError(ctx, b, chatID,
			fmt.Sprintf("❌ Слишком длинно. Максимум %d символов.\n\nПопробуйте ещё раз:", GradeMaxLength))
		return
	}

	user, _, ok := h.requireUser(ctx, b, update)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	if _, err := h.userService.SetGradeLevel(ctx, user.ID, grade); err != nil {
		h.replyError(ctx, b, chatID, "set grade", err)
		return
	}
	h.stateManager.ClearState(telegramID)

	if grade == "" {
		grade = "любой"
	}
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Уровень сохранён: %s", html.EscapeString(grade)))
}

// HandleSubjects начинает диалог ввода предметов
func (h *Handlers) HandleSubjects(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID, ok := h.requireRole(ctx, b, update)
	if !ok {
		return
	}

	h.stateManager.SetState(update.Message.From.ID, state.StateEnterSubjects)

	question := "📚 Какие предметы вам нужны?"
	if user.IsTeacher() {
		question = "📚 Какие предметы вы преподаёте?"
	}

	h.sendMessage(ctx, b, chatID, question+"\n\n"+
		"Перечислите через запятую, например: Математика, Физика\n"+
		"Отправьте «-», чтобы искать по общему направлению (General).\n\n"+
		"Для отмены используйте /cancel")
}

// handleSubjectsStep обрабатывает ввод предметов
func (h *Handlers) handleSubjectsStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	subjects := []string{model.SubjectGeneral}
	if text != "-" {
		subjects = service.ParseSubjects(text)
		if len(subjects) == 0 {
			h.sendError(ctx, b, chatID, "❌ Не удалось разобрать список. Попробуйте ещё раз:")
			return
		}
		for _, s := range subjects {
			if utf8.RuneCountInString(s) > SubjectMaxLength {
				h.sendError(ctx, b, chatID,
					fmt.Sprintf("❌ Название предмета слишком длинное. Максимум %d символов.", SubjectMaxLength))
				return
			}
		}
	}

	user, _, ok := h.requireUser(ctx, b, update)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	updated, err := h.userService.SetSubjects(ctx, user.ID, subjects)
	if err != nil {
		h.replyError(ctx, b, chatID, "set subjects", err)
		return
	}
	h.stateManager.ClearState(telegramID)

	h.logger.Info("Subjects dialog completed",
		zap.Int64("telegram_id", telegramID),
		zap.Int("count", len(subjects)))

	h.sendWithKeyboard(ctx, b, chatID, "✅ Профиль обновлён\n\n"+formatting.FormatProfile(updated), keyboard.FindMatch())
}
