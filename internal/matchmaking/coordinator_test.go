package matchmaking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/Freeeeeet/tutor_match_bot/internal/repository/inmem"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type handoffRecorder struct {
	mu    sync.Mutex
	calls []handoffCall
}

type handoffCall struct {
	matchID uuid.UUID
	userID  uuid.UUID
}

func (h *handoffRecorder) BeginSession(ctx context.Context, matchID, userID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, handoffCall{matchID, userID})
	return nil
}

func (h *handoffRecorder) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type extensionStub struct {
	active bool
	err    error
}

func (e extensionStub) HasActiveExtension(ctx context.Context, studentID uuid.UUID, subject, gradeLevel string) (bool, error) {
	return e.active, e.err
}

type profileStub map[uuid.UUID]*model.User

func (p profileStub) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return p[userID], nil
}

// withoutClaim hides the atomic claim so pairing goes through reconciliation.
type withoutClaim struct {
	matchmaking.RequestStore
}

type matchesWithoutClaim struct {
	matchmaking.MatchStore
}

func newCoordinator(t *testing.T, opts ...matchmaking.Option) (*matchmaking.Coordinator, *inmem.Store) {
	t.Helper()
	store := inmem.NewStore()
	return matchmaking.NewCoordinator(store, store, opts...), store
}

func submit(t *testing.T, c *matchmaking.Coordinator, role model.Role, grade string, subjects ...string) (uuid.UUID, *matchmaking.SubmitResult) {
	t.Helper()
	userID := uuid.New()
	res, err := c.Submit(context.Background(), matchmaking.SubmitParams{
		UserID:     userID,
		Role:       role,
		Subjects:   subjects,
		GradeLevel: grade,
	})
	require.NoError(t, err)
	return userID, res
}

// pairUp creates a student and a tutor that pair on Math/5.
func pairUp(t *testing.T, c *matchmaking.Coordinator) (student, tutor uuid.UUID, m *model.Match) {
	t.Helper()
	tutor, _ = submit(t, c, model.RoleTeacher, "5", "Math", "Science")
	student, res := submit(t, c, model.RoleStudent, "5", "Math")
	require.NotNil(t, res.Match)
	return student, tutor, res.Match
}

func TestSubmit_PairsWithWaitingTutor(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	tutorID, tutorRes := submit(t, c, model.RoleTeacher, "5", "Math", "Science")
	require.Nil(t, tutorRes.Match)
	assert.Equal(t, model.RequestStatusSearching, tutorRes.Request.Status)

	studentID, res := submit(t, c, model.RoleStudent, "5", "Math")
	require.NotNil(t, res.Match)

	m := res.Match
	assert.Equal(t, studentID, m.StudentID)
	assert.Equal(t, tutorID, m.TutorID)
	assert.Equal(t, "Math", m.Subject)
	assert.Equal(t, "5", m.GradeLevel)
	assert.Equal(t, model.MatchStatusActive, m.Status)
	assert.False(t, m.StudentConfirmed)
	assert.False(t, m.TutorConfirmed)

	for _, id := range []uuid.UUID{tutorRes.Request.ID, res.Request.ID} {
		r, err := store.GetRequest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusMatched, r.Status)
		require.NotNil(t, r.MatchID)
		assert.Equal(t, m.ID, *r.MatchID)
	}
}

func TestSubmit_SameRoleStaysSearching(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := c.Submit(ctx, matchmaking.SubmitParams{
				UserID:     uuid.New(),
				Role:       model.RoleTeacher,
				Subjects:   []string{"Math"},
				GradeLevel: "5",
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	searching, err := store.QueryRequests(ctx, matchmaking.RequestQuery{Status: model.RequestStatusSearching})
	require.NoError(t, err)
	assert.Len(t, searching, 2)

	matches, err := store.QueryMatches(ctx, matchmaking.MatchQuery{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSubmit_EmptySubjectsRejectedBeforeWrite(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	_, err := c.Submit(ctx, matchmaking.SubmitParams{
		UserID:     uuid.New(),
		Role:       model.RoleStudent,
		Subjects:   []string{},
		GradeLevel: "5",
	})
	require.ErrorIs(t, err, matchmaking.ErrInvalidProfile)

	reqs, err := store.QueryRequests(ctx, matchmaking.RequestQuery{})
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestSubmit_InvalidRole(t *testing.T) {
	c, _ := newCoordinator(t)

	_, err := c.Submit(context.Background(), matchmaking.SubmitParams{
		UserID:   uuid.New(),
		Role:     "admin",
		Subjects: []string{"Math"},
	})
	assert.ErrorIs(t, err, matchmaking.ErrInvalidProfile)
}

func TestSubmit_SupersedesPreviousSearch(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	userID, first := submit(t, c, model.RoleStudent, "5", "Math")

	second, err := c.Submit(ctx, matchmaking.SubmitParams{
		UserID:     userID,
		Role:       model.RoleStudent,
		Subjects:   []string{"Physics"},
		GradeLevel: "5",
	})
	require.NoError(t, err)

	old, err := store.GetRequest(ctx, first.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, old.Status)

	cur, err := c.SearchingRequest(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, second.Request.ID, cur.ID)
}

func TestSubmit_SupersedesUnconfirmedMatch(t *testing.T) {
	c, _ := newCoordinator(t)
	ctx := context.Background()

	student, _, m := pairUp(t, c)

	_, err := c.Submit(ctx, matchmaking.SubmitParams{
		UserID:     student,
		Role:       model.RoleStudent,
		Subjects:   []string{"Math"},
		GradeLevel: "5",
	})
	require.NoError(t, err)

	old, err := c.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusCancelled, old.Status)
}

func TestSubmit_RefusedWhileConfirmedMatch(t *testing.T) {
	c, _ := newCoordinator(t)
	ctx := context.Background()

	student, tutor, m := pairUp(t, c)
	_, err := c.Confirm(ctx, m.ID, student)
	require.NoError(t, err)
	_, err = c.Confirm(ctx, m.ID, tutor)
	require.NoError(t, err)

	_, err = c.Submit(ctx, matchmaking.SubmitParams{
		UserID:   student,
		Role:     model.RoleStudent,
		Subjects: []string{"Math"},
	})
	assert.ErrorIs(t, err, matchmaking.ErrAlreadyMatched)
}

func TestFindMatch_UsesProfile(t *testing.T) {
	student := &model.User{ID: uuid.New(), Role: model.RoleStudent}
	tutor := &model.User{ID: uuid.New(), Role: model.RoleTeacher, GradeLevel: "9"}
	noRole := &model.User{ID: uuid.New()}
	profiles := profileStub{student.ID: student, tutor.ID: tutor, noRole.ID: noRole}

	c, _ := newCoordinator(t, matchmaking.WithProfiles(profiles))
	ctx := context.Background()

	_, err := c.FindMatch(ctx, noRole.ID)
	require.ErrorIs(t, err, matchmaking.ErrInvalidProfile)

	_, err = c.FindMatch(ctx, uuid.New())
	require.ErrorIs(t, err, matchmaking.ErrInvalidProfile)

	res, err := c.FindMatch(ctx, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.SubjectGeneral}, res.Request.Subjects)

	res, err = c.FindMatch(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Equal(t, model.SubjectGeneral, res.Match.Subject)
	assert.Equal(t, "9", res.Match.GradeLevel)
}

func TestConfirm_BothSidesThenHandoff(t *testing.T) {
	rec := &handoffRecorder{}
	c, _ := newCoordinator(t, matchmaking.WithHandoff(rec))
	ctx := context.Background()

	student, tutor, m := pairUp(t, c)

	got, err := c.Confirm(ctx, m.ID, student)
	require.NoError(t, err)
	assert.True(t, got.StudentConfirmed)
	assert.False(t, got.TutorConfirmed)
	assert.False(t, matchmaking.IsFullyConfirmed(got))

	require.ErrorIs(t, c.Handoff(ctx, m.ID, student), matchmaking.ErrMatchClosed)

	got, err = c.Confirm(ctx, m.ID, tutor)
	require.NoError(t, err)
	assert.True(t, got.StudentConfirmed)
	assert.True(t, got.TutorConfirmed)
	assert.True(t, matchmaking.IsFullyConfirmed(got))

	require.NoError(t, c.Handoff(ctx, m.ID, student))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, m.ID, rec.calls[0].matchID)
	assert.Equal(t, student, rec.calls[0].userID)

	assert.ErrorIs(t, c.Handoff(ctx, m.ID, uuid.New()), matchmaking.ErrNotParticipant)
}

func TestConfirm_Idempotent(t *testing.T) {
	c, _ := newCoordinator(t)
	ctx := context.Background()

	student, _, m := pairUp(t, c)

	once, err := c.Confirm(ctx, m.ID, student)
	require.NoError(t, err)
	twice, err := c.Confirm(ctx, m.ID, student)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestConfirm_Errors(t *testing.T) {
	c, _ := newCoordinator(t)
	ctx := context.Background()

	student, _, m := pairUp(t, c)

	_, err := c.Confirm(ctx, uuid.New(), student)
	assert.ErrorIs(t, err, matchmaking.ErrNotFound)

	_, err = c.Confirm(ctx, m.ID, uuid.New())
	assert.ErrorIs(t, err, matchmaking.ErrNotParticipant)

	require.NoError(t, c.Cancel(ctx, student, matchmaking.CancelParams{MatchID: m.ID}))

	_, err = c.Confirm(ctx, m.ID, student)
	assert.ErrorIs(t, err, matchmaking.ErrMatchClosed)
}

func TestConfirm_AtMostOneConfirmedMatchPerUser(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	tutor := uuid.New()
	first := &model.Match{StudentID: uuid.New(), TutorID: tutor, Subject: "Math", GradeLevel: "5"}
	second := &model.Match{StudentID: uuid.New(), TutorID: tutor, Subject: "Math", GradeLevel: "5"}
	require.NoError(t, store.InsertMatch(ctx, first))
	require.NoError(t, store.InsertMatch(ctx, second))

	_, err := c.Confirm(ctx, first.ID, first.StudentID)
	require.NoError(t, err)
	_, err = c.Confirm(ctx, first.ID, tutor)
	require.NoError(t, err)

	_, err = c.Confirm(ctx, second.ID, second.StudentID)
	require.NoError(t, err)
	_, err = c.Confirm(ctx, second.ID, tutor)
	require.ErrorIs(t, err, matchmaking.ErrAlreadyMatched)

	ms, err := store.QueryMatchesForUser(ctx, tutor)
	require.NoError(t, err)
	confirmed := 0
	for _, m := range ms {
		if m.IsActivatable() {
			confirmed++
		}
	}
	assert.Equal(t, 1, confirmed)
}

// slowMatches widens the window between the coordinator's read and its write.
type slowMatches struct {
	matchmaking.MatchStore
}

func (s slowMatches) UpdateMatch(ctx context.Context, id uuid.UUID, upd matchmaking.MatchUpdate) (*model.Match, bool, error) {
	time.Sleep(2 * time.Millisecond)
	return s.MatchStore.UpdateMatch(ctx, id, upd)
}

func TestConfirm_ConcurrentConfirmsKeepOneConfirmedMatch(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		store := inmem.NewStore()
		c := matchmaking.NewCoordinator(store, slowMatches{store})

		user := uuid.New()
		first := &model.Match{StudentID: user, TutorID: uuid.New(), Subject: "Math", GradeLevel: "5", TutorConfirmed: true}
		second := &model.Match{StudentID: user, TutorID: uuid.New(), Subject: "Art", GradeLevel: "5", TutorConfirmed: true}
		require.NoError(t, store.InsertMatch(ctx, first))
		require.NoError(t, store.InsertMatch(ctx, second))

		var g errgroup.Group
		refused := 0
		var mu sync.Mutex
		for _, m := range []*model.Match{first, second} {
			m := m
			g.Go(func() error {
				_, err := c.Confirm(ctx, m.ID, user)
				if errors.Is(err, matchmaking.ErrAlreadyMatched) {
					mu.Lock()
					refused++
					mu.Unlock()
					return nil
				}
				return err
			})
		}
		require.NoError(t, g.Wait())

		ms, err := store.QueryMatchesForUser(ctx, user)
		require.NoError(t, err)
		confirmed := 0
		for _, m := range ms {
			if m.IsActivatable() {
				confirmed++
			}
		}
		require.Equal(t, 1, confirmed)
		require.Equal(t, 1, refused)
	}
}

func TestStatusesNeverLeaveTerminal(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	student, tutor, m := pairUp(t, c)

	var (
		mu   sync.Mutex
		seen []model.MatchStatus
	)
	cancel, err := store.Subscribe(ctx, student, func(m *model.Match) {
		mu.Lock()
		seen = append(seen, m.Status)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, c.Cancel(ctx, tutor, matchmaking.CancelParams{MatchID: m.ID}))
	_, err = c.Confirm(ctx, m.ID, student)
	require.ErrorIs(t, err, matchmaking.ErrMatchClosed)
	require.NoError(t, c.Cancel(ctx, student, matchmaking.CancelParams{MatchID: m.ID}))

	active := model.MatchStatusActive
	_, ok, err := store.UpdateMatch(ctx, m.ID, matchmaking.MatchUpdate{Status: &active})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := c.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusCancelled, got.Status)

	mu.Lock()
	assert.Equal(t, []model.MatchStatus{model.MatchStatusCancelled}, seen)
	mu.Unlock()

	reqs, err := store.QueryRequests(ctx, matchmaking.RequestQuery{UserID: student})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	ok, err = store.UpdateRequestStatus(ctx, reqs[0].ID, model.RequestStatusMatched, model.RequestStatusSearching, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCancel(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()

	userID, res := submit(t, c, model.RoleStudent, "5", "Math")

	assert.ErrorIs(t, c.Cancel(ctx, userID, matchmaking.CancelParams{}), matchmaking.ErrNotFound)
	assert.ErrorIs(t,
		c.Cancel(ctx, uuid.New(), matchmaking.CancelParams{RequestID: res.Request.ID}),
		matchmaking.ErrNotParticipant,
	)

	require.NoError(t, c.Cancel(ctx, userID, matchmaking.CancelParams{RequestID: res.Request.ID}))
	r, err := store.GetRequest(ctx, res.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, r.Status)

	// Terminal rows are left as they are.
	require.NoError(t, c.Cancel(ctx, userID, matchmaking.CancelParams{RequestID: res.Request.ID}))

	_, _, m := pairUp(t, c)
	assert.ErrorIs(t,
		c.Cancel(ctx, uuid.New(), matchmaking.CancelParams{MatchID: m.ID}),
		matchmaking.ErrNotParticipant,
	)
}

func TestCancelSearch(t *testing.T) {
	c, _ := newCoordinator(t)
	ctx := context.Background()

	userID, _ := submit(t, c, model.RoleStudent, "5", "Math")

	n, err := c.CancelSearch(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.CancelSearch(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEndActiveMatch(t *testing.T) {
	confirmBoth := func(t *testing.T, c *matchmaking.Coordinator) (uuid.UUID, *model.Match) {
		student, tutor, m := pairUp(t, c)
		_, err := c.Confirm(context.Background(), m.ID, student)
		require.NoError(t, err)
		_, err = c.Confirm(context.Background(), m.ID, tutor)
		require.NoError(t, err)
		return student, m
	}

	t.Run("blocked by extension", func(t *testing.T) {
		c, _ := newCoordinator(t, matchmaking.WithExtensions(extensionStub{active: true}))
		student, m := confirmBoth(t, c)

		_, err := c.EndActiveMatch(context.Background(), student)
		require.ErrorIs(t, err, matchmaking.ErrBlocked)

		got, err := c.GetMatch(context.Background(), m.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MatchStatusActive, got.Status)
	})

	t.Run("extension lookup fails", func(t *testing.T) {
		c, _ := newCoordinator(t, matchmaking.WithExtensions(extensionStub{err: errors.New("db down")}))
		student, _ := confirmBoth(t, c)

		_, err := c.EndActiveMatch(context.Background(), student)
		assert.True(t, matchmaking.IsStoreError(err))
	})

	t.Run("completes", func(t *testing.T) {
		c, _ := newCoordinator(t, matchmaking.WithExtensions(extensionStub{}))
		student, m := confirmBoth(t, c)

		got, err := c.EndActiveMatch(context.Background(), student)
		require.NoError(t, err)
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, model.MatchStatusCompleted, got.Status)

		_, err = c.EndActiveMatch(context.Background(), student)
		assert.ErrorIs(t, err, matchmaking.ErrNoActiveMatch)
	})

	t.Run("unconfirmed match cannot be ended", func(t *testing.T) {
		c, _ := newCoordinator(t)
		student, _, _ := pairUp(t, c)

		_, err := c.EndActiveMatch(context.Background(), student)
		assert.ErrorIs(t, err, matchmaking.ErrNoActiveMatch)
	})
}

func TestExpireStale(t *testing.T) {
	now := time.Now()
	c, store := newCoordinator(t, matchmaking.WithClock(func() time.Time { return now.Add(time.Hour) }))
	ctx := context.Background()

	_, searching := submit(t, c, model.RoleStudent, "5", "History")
	_, _, pending := pairUp(t, c)

	s2, t2, confirmed := func() (uuid.UUID, uuid.UUID, *model.Match) {
		tu, _ := submit(t, c, model.RoleTeacher, "8", "Biology")
		st, res := submit(t, c, model.RoleStudent, "8", "Biology")
		require.NotNil(t, res.Match)
		return st, tu, res.Match
	}()
	_, err := c.Confirm(ctx, confirmed.ID, s2)
	require.NoError(t, err)
	_, err = c.Confirm(ctx, confirmed.ID, t2)
	require.NoError(t, err)

	res, err := c.ExpireStale(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, res)

	res, err = c.ExpireStale(ctx, 30*time.Minute, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Requests)
	assert.Equal(t, 1, res.Matches)

	r, err := store.GetRequest(ctx, searching.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, r.Status)

	got, err := c.GetMatch(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusCancelled, got.Status)

	got, err = c.GetMatch(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusActive, got.Status)
}

func TestConcurrentSubmissions_OneMatchPerTutor(t *testing.T) {
	stores := map[string]func(*inmem.Store) (matchmaking.RequestStore, matchmaking.MatchStore){
		"atomic claim": func(s *inmem.Store) (matchmaking.RequestStore, matchmaking.MatchStore) {
			return s, s
		},
		"reconciliation": func(s *inmem.Store) (matchmaking.RequestStore, matchmaking.MatchStore) {
			return withoutClaim{s}, matchesWithoutClaim{s}
		},
	}

	for name, build := range stores {
		t.Run(name, func(t *testing.T) {
			store := inmem.NewStore()
			requests, matches := build(store)
			ctx := context.Background()

			tutor := uuid.New()
			_, err := matchmaking.NewCoordinator(requests, matches).Submit(ctx, matchmaking.SubmitParams{
				UserID:     tutor,
				Role:       model.RoleTeacher,
				Subjects:   []string{"Math"},
				GradeLevel: "5",
			})
			require.NoError(t, err)

			const students = 8
			var g errgroup.Group
			for i := 0; i < students; i++ {
				g.Go(func() error {
					// Every client runs its own coordinator against the shared store.
					c := matchmaking.NewCoordinator(requests, matches)
					_, err := c.Submit(ctx, matchmaking.SubmitParams{
						UserID:     uuid.New(),
						Role:       model.RoleStudent,
						Subjects:   []string{"Math"},
						GradeLevel: "5",
					})
					return err
				})
			}
			require.NoError(t, g.Wait())

			ms, err := store.QueryMatchesForUser(ctx, tutor)
			require.NoError(t, err)
			active := 0
			for _, m := range ms {
				if m.IsActive() {
					active++
				}
			}
			assert.Equal(t, 1, active)

			searching, err := store.QueryRequests(ctx, matchmaking.RequestQuery{
				Status: model.RequestStatusSearching,
				Role:   model.RoleStudent,
			})
			require.NoError(t, err)
			assert.Len(t, searching, students-1)
		})
	}
}
