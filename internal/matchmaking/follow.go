package matchmaking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHandoffDelay lets both clients render the confirmation before the
// call starts.
const DefaultHandoffDelay = 3 * time.Second

// Follower keeps one participant converged with the shared match rows and
// performs the session handoff once a match is fully confirmed.
type Follower struct {
	coord  *Coordinator
	sub    Subscriber
	delay  time.Duration
	logger *zap.Logger
}

func NewFollower(coord *Coordinator, sub Subscriber, delay time.Duration, logger *zap.Logger) *Follower {
	if delay < 0 {
		delay = DefaultHandoffDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Follower{coord: coord, sub: sub, delay: delay, logger: logger}
}

// Follow forwards every change of a live match of the user to onChange and
// schedules the handoff once per fully confirmed match. Terminal rows are
// forwarded only for matches that were seen active, so history does not
// replay. A match that was already fully confirmed before Follow started is
// neither forwarded nor handed off again. The returned stop func ends the
// subscription and drops pending handoffs.
func (f *Follower) Follow(ctx context.Context, userID uuid.UUID, onChange func(*model.Match)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	t := &tracking{
		live:      make(map[uuid.UUID]bool),
		handedOff: make(map[uuid.UUID]bool),
		replaying: true,
		since:     time.Now(),
	}

	unsubscribe, err := f.sub.Subscribe(ctx, userID, func(m *model.Match) {
		if t.settled(m) {
			return
		}
		if !t.admit(m) {
			return
		}
		if t.shouldHandoff(m) {
			t.schedule(time.AfterFunc(f.delay, func() {
				f.handoff(ctx, m.ID, userID)
			}))
		}
		if onChange != nil {
			onChange(m)
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}
	t.endReplay()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			unsubscribe()
			t.stopTimers()
		})
	}, nil
}

func (f *Follower) handoff(ctx context.Context, matchID, userID uuid.UUID) {
	if ctx.Err() != nil {
		return
	}
	err := f.coord.Handoff(ctx, matchID, userID)
	switch {
	case err == nil:
	case errors.Is(err, ErrMatchClosed):
		f.logger.Info("Handoff skipped, match closed during grace delay",
			zap.String("match_id", matchID.String()),
			zap.String("user_id", userID.String()),
		)
	default:
		f.logger.Error("Handoff failed",
			zap.String("match_id", matchID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

type tracking struct {
	mu        sync.Mutex
	live      map[uuid.UUID]bool
	handedOff map[uuid.UUID]bool
	timers    []*time.Timer
	stopped   bool

	replaying bool
	since     time.Time
}

// settled records a match that was fully confirmed before the follow began.
// Its handoff belongs to an earlier follow.
func (t *tracking) settled(m *model.Match) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.replaying || !m.IsActivatable() || m.UpdatedAt.After(t.since) {
		return false
	}
	if t.live[m.ID] {
		return false
	}
	t.live[m.ID] = true
	t.handedOff[m.ID] = true
	return true
}

func (t *tracking) endReplay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replaying = false
}

func (t *tracking) admit(m *model.Match) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	if m.IsActive() {
		t.live[m.ID] = true
		return true
	}
	return t.live[m.ID]
}

func (t *tracking) shouldHandoff(m *model.Match) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !m.IsActivatable() || t.handedOff[m.ID] {
		return false
	}
	t.handedOff[m.ID] = true
	return true
}

func (t *tracking) schedule(timer *time.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		timer.Stop()
		return
	}
	t.timers = append(t.timers, timer)
}

func (t *tracking) stopTimers() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for _, timer := range t.timers {
		timer.Stop()
	}
}
