package controller

import (
	"context"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/handlers"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/state"
	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	stateManager    *state.Manager
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	userService *service.UserService,
	extensionService *service.ExtensionService,
	coordinator *matchmaking.Coordinator,
	notifier callbacktypes.Notifier,
	logger *zap.Logger,
) *BotController {
	// Создаём менеджер состояний
	stateManager := state.NewManager(state.DefaultDialogTTL)

	// Создаём обработчики команд
	cmdHandlers := handlers.NewHandlers(
		userService,
		extensionService,
		coordinator,
		notifier,
		stateManager,
		logger,
	)

	// Создаём callback handler с зависимостями
	callbackHandler := callbacks.NewHandler(
		userService,
		extensionService,
		coordinator,
		notifier,
		stateManager,
		logger,
		cmdHandlers.HandleFindMatch,
		cmdHandlers.HandleMyMatch,
	)

	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		stateManager:    stateManager,
		logger:          logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// Профиль
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/role", bot.MatchTypeExact, c.handlers.HandleRole)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/grade", bot.MatchTypeExact, c.handlers.HandleGrade)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/subjects", bot.MatchTypeExact, c.handlers.HandleSubjects)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/profile", bot.MatchTypeExact, c.handlers.HandleProfile)

	// Подбор пары
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/findmatch", bot.MatchTypeExact, c.handlers.HandleFindMatch)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/mymatch", bot.MatchTypeExact, c.handlers.HandleMyMatch)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancelmatch", bot.MatchTypeExact, c.handlers.HandleCancelMatch)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/endmatch", bot.MatchTypeExact, c.handlers.HandleEndMatch)

	// Для репетиторов: /extend или /extend <причина>
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/extend", bot.MatchTypePrefix, c.handlers.HandleExtend)

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "findmatch", Description: "🔎 Найти пару"},
		{Command: "mymatch", Description: "🤝 Текущая пара"},
		{Command: "cancelmatch", Description: "✖️ Отменить поиск или пару"},
		{Command: "endmatch", Description: "✔️ Завершить занятие"},
		{Command: "profile", Description: "👤 Мой профиль"},
		{Command: "role", Description: "🎭 Выбрать роль"},
		{Command: "grade", Description: "🎯 Указать уровень"},
		{Command: "subjects", Description: "📚 Указать предметы"},
		{Command: "extend", Description: "⏰ Продлить занятия (репетитор)"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// PruneDialogs сбрасывает брошенные диалоги
func (c *BotController) PruneDialogs() {
	if n := c.stateManager.Prune(); n > 0 {
		c.logger.Debug("Abandoned dialogs pruned", zap.Int("count", n))
	}
}

// Start запускает бота
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
