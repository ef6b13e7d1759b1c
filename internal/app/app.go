package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/config"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/notify"
	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/repository"
	"github.com/Freeeeeet/tutor_match_bot/internal/repository/inmem"
	"github.com/Freeeeeet/tutor_match_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	pruneDialogsSchedule = "@every 10m"
	pruneWatchesSchedule = "@every 10m"
	// watchIdleTimeout сколько держать подписку пользователя без поиска и матча
	watchIdleTimeout = 30 * time.Minute
)

// stores набор хранилищ, общий для postgres и in-memory режима
type stores struct {
	requests   matchmaking.RequestStore
	matches    matchStore
	users      service.UserRepository
	extensions service.ExtensionRepository
	subscriber matchmaking.Subscriber
}

// matchStore хранилище матчей, которое также отдаёт матч по ID для продлений
type matchStore interface {
	matchmaking.MatchStore
	service.MatchReader
}

// App собирает все компоненты бота
type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	pool        *pgxpool.Pool
	listener    *repository.MatchListener
	notifier    *notify.Notifier
	coordinator *matchmaking.Coordinator
	scheduler   *Scheduler
	controller  *controller.BotController
}

// New создаёт хранилища, сервисы, координатор и telegram-контроллер
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	userService := service.NewUserService(st.users, logger)
	extensionService := service.NewExtensionService(st.extensions, st.matches, cfg.ExtensionDuration, logger)

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create bot: %w", err)
	}

	a.notifier = notify.New(ctx, b, userService, cfg.CallBaseURL, cfg.HandoffDelay, logger)

	coordinator := matchmaking.NewCoordinator(
		st.requests,
		st.matches,
		matchmaking.WithProfiles(userService),
		matchmaking.WithExtensions(extensionService),
		matchmaking.WithHandoff(a.notifier),
		matchmaking.WithLogger(logger),
	)
	a.coordinator = coordinator
	a.notifier.SetFollower(matchmaking.NewFollower(coordinator, st.subscriber, cfg.HandoffDelay, logger))

	a.controller = controller.NewBotController(b, userService, extensionService, coordinator, a.notifier, logger)
	a.scheduler = NewScheduler(coordinator, cfg.RequestTTL, cfg.ConfirmTTL, logger)

	return a, nil
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	if a.cfg.UseMemoryStore() {
		a.logger.Warn("Using in-memory store, data is lost on restart")
		s := inmem.NewStore()
		// in-memory хранилище само доставляет изменения подписчикам
		return &stores{requests: s, matches: s, users: s, extensions: s, subscriber: s}, nil
	}

	pool, err := pgxpool.New(ctx, a.cfg.GetDBDSN())
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	a.pool = pool
	a.logger.Info("Connected to database")

	migrator, err := NewMigrator(pool, a.cfg.MigrationsPath, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	err = migrator.Run(ctx)
	if cerr := migrator.Close(); cerr != nil {
		a.logger.Warn("Failed to close migrator", zap.Error(cerr))
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	matches := repository.NewMatchRepository(pool)
	st := &stores{
		requests:   repository.NewMatchRequestRepository(pool),
		matches:    matches,
		users:      repository.NewUserRepository(pool),
		extensions: repository.NewExtensionRepository(pool),
	}

	switch a.cfg.Convergence {
	case config.ConvergenceListen:
		a.listener = repository.NewMatchListener(pool, matches, a.logger)
		st.subscriber = a.listener
	default:
		st.subscriber = matchmaking.NewPoller(matches, a.cfg.PollInterval, a.logger)
	}
	a.logger.Info("Match convergence configured", zap.String("mode", a.cfg.Convergence))

	return st, nil
}

// Run блокируется до отмены контекста
func (a *App) Run(ctx context.Context) error {
	if err := a.controller.RegisterHandlers(ctx); err != nil {
		// Меню команд не критично для работы бота
		a.logger.Warn("Failed to register bot commands menu", zap.Error(err))
	}

	if a.listener != nil {
		go a.listener.Run(ctx)
	}

	if err := a.scheduler.Start(ctx, a.cfg.SweepSchedule); err != nil {
		return err
	}
	defer a.scheduler.Stop()

	err := a.scheduler.AddJob(ctx, pruneDialogsSchedule, "prune_dialogs", func(context.Context) {
		a.controller.PruneDialogs()
	})
	if err != nil {
		return err
	}

	err = a.scheduler.AddJob(ctx, pruneWatchesSchedule, "prune_watches", func(ctx context.Context) {
		pruned, err := a.notifier.PruneIdle(ctx, a.coordinator, watchIdleTimeout)
		if err != nil {
			a.logger.Warn("Failed to prune match watches", zap.Error(err))
			return
		}
		if pruned > 0 {
			a.logger.Info("Pruned idle match watches", zap.Int("count", pruned), zap.Int("watched", a.notifier.Watched()))
		}
	})
	if err != nil {
		return err
	}

	// После рестарта подписок нет, восстанавливаем их для всех, кто ждёт пару
	restored, err := a.notifier.Restore(ctx, a.coordinator)
	if err != nil {
		return err
	}
	a.logger.Info("Match watches restored", zap.Int("count", restored))

	return a.controller.Start(ctx)
}

// Close отписывает участников и закрывает пул
func (a *App) Close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
