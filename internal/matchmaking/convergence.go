package matchmaking

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPollInterval matches the refresh rate the web client used.
const DefaultPollInterval = 3 * time.Second

// Subscriber delivers changes of the matches a user takes part in. fn may be
// called from another goroutine and must not block for long. Rows delivered
// before Subscribe returns are the current state, not fresh changes. The
// returned cancel func stops delivery and waits for in-flight callbacks, so it
// must not be called from fn.
type Subscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID, fn func(*model.Match)) (cancel func(), err error)
}

// MatchLister is the poll primitive behind Poller.
type MatchLister interface {
	QueryMatchesForUser(ctx context.Context, userID uuid.UUID) ([]*model.Match, error)
}

// Poller is a Subscriber that re-reads the user's matches on a fixed interval
// and emits the rows that changed since the previous read. Read failures are
// logged and skipped; the next tick tries again.
type Poller struct {
	store    MatchLister
	interval time.Duration
	logger   *zap.Logger
}

func NewPoller(store MatchLister, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{store: store, interval: interval, logger: logger}
}

func (p *Poller) Subscribe(ctx context.Context, userID uuid.UUID, fn func(*model.Match)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	seen := make(map[uuid.UUID]snapshot)
	p.poll(ctx, userID, seen, fn)

	go func() {
		defer close(done)
		p.run(ctx, userID, seen, fn)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (p *Poller) run(ctx context.Context, userID uuid.UUID, seen map[uuid.UUID]snapshot, fn func(*model.Match)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.poll(ctx, userID, seen, fn)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context, userID uuid.UUID, seen map[uuid.UUID]snapshot, fn func(*model.Match)) {
	ms, err := p.store.QueryMatchesForUser(ctx, userID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Debug("Match poll failed, will retry",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
		return
	}

	// Rows arrive newest first; emit oldest first so the freshest state lands last.
	for i := len(ms) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return
		}
		m := ms[i]
		snap := snapshotOf(m)
		if prev, ok := seen[m.ID]; ok && prev == snap {
			continue
		}
		seen[m.ID] = snap
		fn(m.Clone())
	}
}

type snapshot struct {
	status           model.MatchStatus
	studentConfirmed bool
	tutorConfirmed   bool
}

func snapshotOf(m *model.Match) snapshot {
	return snapshot{
		status:           m.Status,
		studentConfirmed: m.StudentConfirmed,
		tutorConfirmed:   m.TutorConfirmed,
	}
}

// Fanout routes a match row to the callbacks registered for either
// participant. Push-based Subscribers deliver through it.
type Fanout struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[int]*fanoutSub
	nextID int
}

type fanoutSub struct {
	fn       func(*model.Match)
	inflight sync.WaitGroup
}

func NewFanout() *Fanout {
	return &Fanout{subs: make(map[uuid.UUID]map[int]*fanoutSub)}
}

// Add registers fn for the user's matches. The returned func removes it and
// waits until no call of fn is running.
func (f *Fanout) Add(userID uuid.UUID, fn func(*model.Match)) func() {
	sub := &fanoutSub{fn: fn}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[int]*fanoutSub)
	}
	f.subs[userID][id] = sub
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[userID], id)
			if len(f.subs[userID]) == 0 {
				delete(f.subs, userID)
			}
			f.mu.Unlock()
			sub.inflight.Wait()
		})
	}
}

// Publish calls every callback of both participants with its own copy of m.
func (f *Fanout) Publish(m *model.Match) {
	f.mu.Lock()
	var subs []*fanoutSub
	for _, uid := range []uuid.UUID{m.StudentID, m.TutorID} {
		for _, sub := range f.subs[uid] {
			sub.inflight.Add(1)
			subs = append(subs, sub)
		}
	}
	f.mu.Unlock()

	for _, sub := range subs {
		func() {
			defer sub.inflight.Done()
			sub.fn(m.Clone())
		}()
	}
}

// Len reports how many users have at least one callback registered.
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
