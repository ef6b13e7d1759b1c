package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/Freeeeeet/tutor_match_bot/internal/repository/inmem"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	chatID int64
	text   string
	kb     *models.InlineKeyboardMarkup
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := sentMessage{chatID: params.ChatID.(int64), text: params.Text}
	if kb, ok := params.ReplyMarkup.(*models.InlineKeyboardMarkup); ok {
		msg.kb = kb
	}
	f.sent = append(f.sent, msg)
	return &models.Message{}, nil
}

func (f *fakeSender) to(chatID int64, contains string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.chatID == chatID && strings.Contains(m.text, contains) {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	store   *inmem.Store
	sender  *fakeSender
	n       *Notifier
	coord   *matchmaking.Coordinator
	student *model.User
	tutor   *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := inmem.NewStore()
	sender := &fakeSender{}
	n := New(ctx, sender, store, "https://call.test", 0, zap.NewNop())
	t.Cleanup(n.Close)

	coord := matchmaking.NewCoordinator(store, store, matchmaking.WithHandoff(n))
	n.SetFollower(matchmaking.NewFollower(coord, store, 0, zap.NewNop()))

	student := &model.User{TelegramID: 100, FirstName: "Sam", Role: model.RoleStudent}
	tutor := &model.User{TelegramID: 200, FirstName: "Tia", Role: model.RoleTeacher}
	require.NoError(t, store.Create(ctx, student))
	require.NoError(t, store.Create(ctx, tutor))

	return &fixture{store: store, sender: sender, n: n, coord: coord, student: student, tutor: tutor}
}

func (f *fixture) pair(t *testing.T) *model.Match {
	t.Helper()
	ctx := context.Background()
	_, err := f.coord.Submit(ctx, matchmaking.SubmitParams{
		UserID: f.student.ID, Role: model.RoleStudent, Subjects: []string{"Math"}, GradeLevel: "10",
	})
	require.NoError(t, err)
	res, err := f.coord.Submit(ctx, matchmaking.SubmitParams{
		UserID: f.tutor.ID, Role: model.RoleTeacher, Subjects: []string{"Math"}, GradeLevel: "10",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	return res.Match
}

// submitStudent pairs the student with the tutor's waiting request.
func (f *fixture) submitStudent(t *testing.T) *model.Match {
	t.Helper()
	res, err := f.coord.Submit(context.Background(), matchmaking.SubmitParams{
		UserID: f.student.ID, Role: model.RoleStudent, Subjects: []string{"Math"}, GradeLevel: "10",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	return res.Match
}

func TestWatchDeliversMatchLifecycleAndCallLink(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.n.Watch(f.student))
	require.NoError(t, f.n.Watch(f.tutor))

	m := f.pair(t)

	found := f.sender.to(100, "Найдена пара")
	require.Len(t, found, 1)
	require.NotNil(t, found[0].kb)
	assert.Equal(t, "confirm_match:"+m.ID.String(), found[0].kb.InlineKeyboard[0][0].CallbackData)
	assert.Len(t, f.sender.to(200, "Найдена пара"), 1)

	ctx := context.Background()
	_, err := f.coord.Confirm(ctx, m.ID, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, f.sender.to(100, "Ждём подтверждения партнёра"), 1)

	_, err = f.coord.Confirm(ctx, m.ID, f.tutor.ID)
	require.NoError(t, err)

	link := "https://call.test/videochat/" + m.ID.String()
	require.Eventually(t, func() bool {
		return len(f.sender.to(100, link)) == 1 && len(f.sender.to(200, link)) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Len(t, f.sender.to(200, "Оба участника подтвердили"), 1)
}

func TestWatchIsIdempotentAndUnwatchStopsDelivery(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.n.Watch(f.student))
	require.NoError(t, f.n.Watch(f.student))

	m := f.pair(t)
	assert.Len(t, f.sender.to(100, "Найдена пара"), 1)

	f.n.Unwatch(f.student.ID)
	require.NoError(t, f.coord.Cancel(context.Background(), f.tutor.ID, matchmaking.CancelParams{MatchID: m.ID}))
	assert.Empty(t, f.sender.to(100, "Пара отменена"))
}

func TestPruneIdleReleasesUsersWithoutSearchOrMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.n.now = func() time.Time { return now }

	for i := 0; i < 20; i++ {
		u := &model.User{TelegramID: int64(1000 + i), FirstName: "Once", Role: model.RoleStudent}
		require.NoError(t, f.store.Create(ctx, u))
		require.NoError(t, f.n.Watch(u))
	}
	require.NoError(t, f.n.Watch(f.tutor))
	_, err := f.coord.Submit(ctx, matchmaking.SubmitParams{
		UserID: f.tutor.ID, Role: model.RoleTeacher, Subjects: []string{"Math"}, GradeLevel: "10",
	})
	require.NoError(t, err)

	now = now.Add(time.Hour)
	// Recent activity keeps a follow alive even without a search.
	require.NoError(t, f.n.Watch(f.student))

	pruned, err := f.n.PruneIdle(ctx, f.coord, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 20, pruned)
	assert.Equal(t, 2, f.n.Watched())
	assert.Equal(t, 2, f.store.Subscribers())

	now = now.Add(time.Hour)
	pruned, err = f.n.PruneIdle(ctx, f.coord, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 1, f.n.Watched())

	// The searching tutor is still told about the match.
	f.submitStudent(t)
	assert.Len(t, f.sender.to(200, "Найдена пара"), 1)
}

func TestRestoreWatchesSearchingAndMatchedUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coord.Submit(ctx, matchmaking.SubmitParams{
		UserID: f.tutor.ID, Role: model.RoleTeacher, Subjects: []string{"Math"}, GradeLevel: "10",
	})
	require.NoError(t, err)

	restored, err := f.n.Restore(ctx, f.coord)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Equal(t, 1, f.n.Watched())

	m := f.submitStudent(t)
	assert.Len(t, f.sender.to(200, "Найдена пара"), 1)

	require.NoError(t, f.coord.Cancel(ctx, f.student.ID, matchmaking.CancelParams{MatchID: m.ID}))
	assert.Len(t, f.sender.to(200, "Пара отменена"), 1)
}

func TestRestoreDoesNotResendCallLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.n.Watch(f.student))
	require.NoError(t, f.n.Watch(f.tutor))

	m := f.pair(t)
	_, err := f.coord.Confirm(ctx, m.ID, f.student.ID)
	require.NoError(t, err)
	_, err = f.coord.Confirm(ctx, m.ID, f.tutor.ID)
	require.NoError(t, err)

	link := "https://call.test/videochat/" + m.ID.String()
	require.Eventually(t, func() bool {
		return len(f.sender.to(100, link)) == 1 && len(f.sender.to(200, link)) == 1
	}, time.Second, 10*time.Millisecond)

	// A restarted process sees the same rows through a polling follower.
	f.n.Close()
	f.n.SetFollower(matchmaking.NewFollower(f.coord, matchmaking.NewPoller(f.store, 5*time.Millisecond, nil), 0, zap.NewNop()))
	restored, err := f.n.Restore(ctx, f.coord)
	require.NoError(t, err)
	assert.Equal(t, 2, restored)

	assert.Never(t, func() bool {
		return len(f.sender.to(100, link)) > 1 || len(f.sender.to(200, link)) > 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestWatchRequiresFollower(t *testing.T) {
	n := New(context.Background(), &fakeSender{}, inmem.NewStore(), "", 0, zap.NewNop())
	require.Error(t, n.Watch(&model.User{ID: uuid.New()}))
}

func TestNotifyUsers(t *testing.T) {
	f := newFixture(t)
	err := f.n.NotifyUsers(context.Background(), []uuid.UUID{f.student.ID, f.tutor.ID}, "hello", nil)
	require.NoError(t, err)
	assert.Len(t, f.sender.to(100, "hello"), 1)
	assert.Len(t, f.sender.to(200, "hello"), 1)

	err = f.n.NotifyUsers(context.Background(), []uuid.UUID{uuid.New()}, "nobody", nil)
	require.Error(t, err)
}

func TestBeginSessionSendsCallURL(t *testing.T) {
	f := newFixture(t)
	matchID := uuid.New()
	require.NoError(t, f.n.BeginSession(context.Background(), matchID, f.tutor.ID))

	msgs := f.sender.to(200, "/videochat/"+matchID.String())
	require.Len(t, msgs, 1)
	assert.Equal(t, f.n.CallURL(matchID), msgs[0].kb.InlineKeyboard[0][0].URL)
}
