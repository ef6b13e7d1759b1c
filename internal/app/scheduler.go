package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Expirer закрывает зависшие заявки и неподтверждённые матчи
type Expirer interface {
	ExpireStale(ctx context.Context, requestTTL, confirmTTL time.Duration) (matchmaking.ExpiryResult, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	expirer    Expirer
	requestTTL time.Duration
	confirmTTL time.Duration
	cron       *cron.Cron
	logger     *zap.Logger
}

// NewScheduler создаёт новый планировщик
func NewScheduler(expirer Expirer, requestTTL, confirmTTL time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		expirer:    expirer,
		requestTTL: requestTTL,
		confirmTTL: confirmTTL,
		cron:       cron.New(),
		logger:     logger,
	}
}

// Start запускает фоновые задачи по расписанию (cron-выражение или @every)
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	s.logger.Info("Starting background scheduler", zap.String("schedule", schedule))

	_, err := s.cron.AddFunc(schedule, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	// Первый запуск сразу при старте
	go s.Sweep(ctx)

	s.cron.Start()
	return nil
}

// AddJob добавляет дополнительную периодическую задачу
func (s *Scheduler) AddJob(ctx context.Context, schedule, name string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if ctx.Err() != nil {
			return
		}
		job(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	s.logger.Info("Background job scheduled",
		zap.String("job", name),
		zap.String("schedule", schedule),
	)
	return nil
}

// Stop останавливает фоновые задачи и дожидается текущего запуска
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

// Sweep отменяет просроченные заявки и матчи без подтверждения
func (s *Scheduler) Sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	res, err := s.expirer.ExpireStale(ctx, s.requestTTL, s.confirmTTL)
	if err != nil {
		s.logger.Error("Failed to expire stale matchmaking rows", zap.Error(err))
		return
	}

	s.logger.Debug("Expiry sweep completed",
		zap.Int("requests", res.Requests),
		zap.Int("matches", res.Matches),
	)
}
