package repository

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// MatchChangesChannel канал NOTIFY, в который пишет триггер на таблице matches
const MatchChangesChannel = "match_changes"

const listenRetryDelay = 3 * time.Second

// MatchListener push-подписка на изменения матчей через LISTEN/NOTIFY.
// Триггер отправляет в payload только id матча, строка перечитывается из БД.
type MatchListener struct {
	pool    *pgxpool.Pool
	matches *MatchRepository
	logger  *zap.Logger

	fanout *matchmaking.Fanout
}

// NewMatchListener создаёт слушателя изменений матчей
func NewMatchListener(pool *pgxpool.Pool, matches *MatchRepository, logger *zap.Logger) *MatchListener {
	return &MatchListener{
		pool:    pool,
		matches: matches,
		logger:  logger,
		fanout:  matchmaking.NewFanout(),
	}
}

// Run держит соединение с LISTEN до отмены контекста, переподключаясь при ошибках
func (l *MatchListener) Run(ctx context.Context) {
	l.logger.Info("Starting match listener", zap.String("channel", MatchChangesChannel))

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Match listener stopped")
			return
		}

		l.logger.Warn("Match listener disconnected, reconnecting", zap.Error(err))

		select {
		case <-time.After(listenRetryDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (l *MatchListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+MatchChangesChannel); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		id, err := uuid.Parse(n.Payload)
		if err != nil {
			l.logger.Warn("Bad match notification payload", zap.String("payload", n.Payload))
			continue
		}

		m, err := l.matches.GetMatch(ctx, id)
		if err != nil || m == nil {
			// Пропускаем цикл, следующее изменение строки придёт новым уведомлением
			l.logger.Debug("Failed to load notified match", zap.String("match_id", id.String()), zap.Error(err))
			continue
		}

		l.dispatch(m)
	}
}

// Subscribe регистрирует обработчик изменений матчей пользователя.
// Сразу отдаёт текущие активные матчи, чтобы не потерять изменения до подписки.
func (l *MatchListener) Subscribe(ctx context.Context, userID uuid.UUID, fn func(*model.Match)) (func(), error) {
	cancel := l.fanout.Add(userID, fn)

	current, err := l.matches.QueryMatchesForUser(ctx, userID)
	if err != nil {
		cancel()
		return nil, err
	}
	for _, m := range current {
		if m.IsActive() {
			fn(m)
		}
	}

	return cancel, nil
}

func (l *MatchListener) dispatch(m *model.Match) {
	l.fanout.Publish(m)
}
