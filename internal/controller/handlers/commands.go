package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	user := update.Message.From

	// Регистрируем пользователя
	registeredUser, err := h.userService.RegisterUser(
		ctx,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	)

	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	h.watch(registeredUser)

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Это Tutor Match Bot: бот подбирает пару ученик ↔ репетитор по предмету и уровню "+
			"и отправляет обоим ссылку на звонок, когда оба подтвердят.\n\n"+
			"1️⃣ Выберите роль\n"+
			"2️⃣ Укажите уровень /grade и предметы /subjects\n"+
			"3️⃣ Запустите поиск /findmatch\n\n"+
			"Справка: /help",
		html.EscapeString(registeredUser.DisplayName()),
	)

	kb := keyboard.Role()
	if registeredUser.Role.Valid() {
		kb = keyboard.FindMatch()
	}
	h.sendWithKeyboard(ctx, b, update.Message.Chat.ID, welcomeText, kb)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"Профиль:\n" +
		"/start - Начать работу с ботом\n" +
		"/role - Выбрать роль (ученик или репетитор)\n" +
		"/grade - Указать класс/уровень\n" +
		"/subjects - Указать предметы\n" +
		"/profile - Мой профиль\n\n" +
		"Подбор пары:\n" +
		"/findmatch - Найти пару\n" +
		"/mymatch - Текущая пара или поиск\n" +
		"/cancelmatch - Отменить поиск или неподтверждённую пару\n" +
		"/endmatch - Завершить занятие\n\n" +
		"Для репетиторов:\n" +
		"/extend - Попросить ученика продлить занятия\n\n" +
		"/cancel - Прервать текущий диалог"

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	if currentState == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	// Очищаем состояние
	h.stateManager.ClearState(telegramID)

	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.")
}

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	// Игнорируем команды (они обрабатываются другими handlers)
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	// Если нет активного состояния, игнорируем
	if currentState == state.StateNone {
		h.logger.Debug("No active state, ignoring message",
			zap.Int64("telegram_id", telegramID))
		return
	}

	h.logger.Debug("Handling dialog step",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)))

	// Обрабатываем в зависимости от состояния
	switch currentState {
	case state.StateEnterGrade:
		h.handleGradeStep(ctx, b, update)
	case state.StateEnterSubjects:
		h.handleSubjectsStep(ctx, b, update)
	case state.StateEnterExtensionReason:
		h.handleExtensionReasonStep(ctx, b, update)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(currentState)))
		h.stateManager.ClearState(telegramID)
	}
}
