package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MessageSender отправка сообщений в Telegram, реализуется *bot.Bot
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// UserLookup поиск пользователя по внутреннему ID
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Follower подписка на матчи пользователя с передачей в звонок
type Follower interface {
	Follow(ctx context.Context, userID uuid.UUID, onChange func(*model.Match)) (func(), error)
}

// Engagement пользователи с активным поиском или матчем
type Engagement interface {
	EngagedUsers(ctx context.Context) ([]uuid.UUID, error)
}

// Notifier доставляет изменения матчей в чаты участников и отправляет ссылку
// на звонок, когда обе стороны подтвердили пару
type Notifier struct {
	ctx          context.Context
	sender       MessageSender
	users        UserLookup
	callBaseURL  string
	handoffDelay time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	follower Follower
	follows  map[uuid.UUID]*follow
	now      func() time.Time
}

type follow struct {
	stop     func()
	lastSeen time.Time
}

// New создаёт notifier. ctx ограничивает время жизни всех подписок.
func New(ctx context.Context, sender MessageSender, users UserLookup, callBaseURL string, handoffDelay time.Duration, logger *zap.Logger) *Notifier {
	return &Notifier{
		ctx:          ctx,
		sender:       sender,
		users:        users,
		callBaseURL:  callBaseURL,
		handoffDelay: handoffDelay,
		logger:       logger,
		follows:      make(map[uuid.UUID]*follow),
		now:          time.Now,
	}
}

// SetFollower подключает follower; координатор создаётся после notifier
func (n *Notifier) SetFollower(f Follower) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.follower = f
}

// CallURL ссылка на комнату звонка для матча
func (n *Notifier) CallURL(matchID uuid.UUID) string {
	return fmt.Sprintf("%s/videochat/%s", n.callBaseURL, matchID)
}

// BeginSession отправляет участнику ссылку на звонок
func (n *Notifier) BeginSession(ctx context.Context, matchID, userID uuid.UUID) error {
	user, err := n.user(ctx, userID)
	if err != nil {
		return err
	}

	url := n.CallURL(matchID)
	kb := keyboard.NewBuilder().
		Row(keyboard.CallButton(url)).
		Build()

	text := "📞 Звонок готов!\n\nНажмите кнопку ниже, чтобы подключиться:\n" + url
	if err := n.send(ctx, user.TelegramID, text, kb); err != nil {
		return fmt.Errorf("send call link: %w", err)
	}
	return nil
}

// Watch подписывает пользователя на изменения его матчей. Повторный вызов
// только отмечает активность пользователя.
func (n *Notifier) Watch(user *model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.follower == nil {
		return fmt.Errorf("notifier has no follower")
	}
	if f, ok := n.follows[user.ID]; ok {
		f.lastSeen = n.now()
		return nil
	}

	watched := *user
	stop, err := n.follower.Follow(n.ctx, user.ID, func(m *model.Match) {
		n.onChange(&watched, m)
	})
	if err != nil {
		return fmt.Errorf("follow user matches: %w", err)
	}
	n.follows[user.ID] = &follow{stop: stop, lastSeen: n.now()}

	n.logger.Debug("Watching user matches", zap.String("user_id", user.ID.String()))
	return nil
}

// Unwatch снимает подписку пользователя
func (n *Notifier) Unwatch(userID uuid.UUID) {
	n.mu.Lock()
	f, ok := n.follows[userID]
	delete(n.follows, userID)
	n.mu.Unlock()

	if ok {
		f.stop()
	}
}

// Watched количество пользователей с подпиской
func (n *Notifier) Watched() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.follows)
}

// Restore подписывает всех пользователей с поиском или активным матчем.
// Вызывается при старте, чтобы после рестарта вторая сторона пары узнала о матче.
func (n *Notifier) Restore(ctx context.Context, engaged Engagement) (int, error) {
	ids, err := engaged.EngagedUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("load engaged users: %w", err)
	}

	restored := 0
	for _, id := range ids {
		user, err := n.user(ctx, id)
		if err != nil {
			n.logger.Warn("Failed to restore match watch", zap.String("user_id", id.String()), zap.Error(err))
			continue
		}
		if err := n.Watch(user); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

// PruneIdle снимает подписки пользователей без поиска и активного матча,
// которые не писали боту дольше idle
func (n *Notifier) PruneIdle(ctx context.Context, engaged Engagement, idle time.Duration) (int, error) {
	cutoff := n.now().Add(-idle)
	ids, err := engaged.EngagedUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("load engaged users: %w", err)
	}
	keep := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	n.mu.Lock()
	var stops []func()
	for id, f := range n.follows {
		if keep[id] || f.lastSeen.After(cutoff) {
			continue
		}
		stops = append(stops, f.stop)
		delete(n.follows, id)
	}
	n.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	return len(stops), nil
}

// Close снимает все подписки
func (n *Notifier) Close() {
	n.mu.Lock()
	stops := make([]func(), 0, len(n.follows))
	for id, f := range n.follows {
		stops = append(stops, f.stop)
		delete(n.follows, id)
	}
	n.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

// NotifyUsers отправляет сообщение нескольким пользователям параллельно
func (n *Notifier) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, text string, kb *models.InlineKeyboardMarkup) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range userIDs {
		id := id
		g.Go(func() error {
			user, err := n.user(ctx, id)
			if err != nil {
				return err
			}
			return n.send(ctx, user.TelegramID, text, kb)
		})
	}
	return g.Wait()
}

func (n *Notifier) onChange(user *model.User, m *model.Match) {
	ctx := n.ctx

	var partner *model.User
	if otherID, ok := m.OtherUserID(user.ID); ok {
		p, err := n.users.GetByID(ctx, otherID)
		if err != nil {
			n.logger.Warn("Failed to load match partner",
				zap.String("match_id", m.ID.String()),
				zap.Error(err),
			)
		}
		partner = p
	}

	text := headline(m, user.ID, n.handoffDelay) + "\n\n" + formatting.FormatMatch(m, user.ID, partner)

	var kb *models.InlineKeyboardMarkup
	if !m.IsActivatable() {
		kb = keyboard.Match(m, user.ID, "")
	}

	if err := n.send(ctx, user.TelegramID, text, kb); err != nil {
		n.logger.Error("Failed to notify match change",
			zap.String("match_id", m.ID.String()),
			zap.String("user_id", user.ID.String()),
			zap.String("status", string(m.Status)),
			zap.Error(err),
		)
	}
}

func headline(m *model.Match, viewerID uuid.UUID, delay time.Duration) string {
	switch {
	case m.IsActivatable():
		return fmt.Sprintf("🎉 Оба участника подтвердили! Звонок начнётся через %s.", delay)
	case m.IsActive() && !m.ConfirmedBy(viewerID):
		return "🎯 Найдена пара! Подтвердите участие."
	case m.IsActive():
		return "⏳ Ждём подтверждения партнёра."
	case m.Status == model.MatchStatusCompleted:
		return "✔️ Занятие завершено."
	default:
		return "❌ Пара отменена."
	}
}

func (n *Notifier) user(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := n.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", id)
	}
	return user, nil
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := n.sender.SendMessage(ctx, params)
	return err
}
