package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 3

// Coordinator drives a user's matchmaking session: submit, pair, confirm,
// hand off and terminate. Every client runs its own coordinator against the
// shared stores; correctness relies on conditional updates in the stores, not
// on a central lock.
type Coordinator struct {
	requests   RequestStore
	matches    MatchStore
	claimer    PairClaimer
	profiles   ProfileProvider
	extensions ExtensionProvider
	handoff    SessionHandoff
	logger     *zap.Logger
	now        func() time.Time

	maxAttempts int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithProfiles sets the profile provider used by FindMatch.
func WithProfiles(p ProfileProvider) Option {
	return func(c *Coordinator) { c.profiles = p }
}

// WithExtensions sets the extension provider consulted by EndActiveMatch.
func WithExtensions(e ExtensionProvider) Option {
	return func(c *Coordinator) { c.extensions = e }
}

// WithHandoff sets the session handoff collaborator.
func WithHandoff(h SessionHandoff) Option {
	return func(c *Coordinator) { c.handoff = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithMaxAttempts bounds how many candidates a single pairing attempt tries
// after losing races.
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// NewCoordinator creates a coordinator over the given stores. If either store
// implements PairClaimer, pairing uses it; otherwise pairing falls back to
// conditional updates followed by reconciliation.
func NewCoordinator(requests RequestStore, matches MatchStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		requests:    requests,
		matches:     matches,
		logger:      zap.NewNop(),
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	if pc, ok := requests.(PairClaimer); ok {
		c.claimer = pc
	} else if pc, ok := matches.(PairClaimer); ok {
		c.claimer = pc
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitParams describes a "find a match" action.
type SubmitParams struct {
	UserID     uuid.UUID
	Role       model.Role
	Subjects   []string
	GradeLevel string
}

// SubmitResult is the outcome of Submit. Match is nil while still searching.
type SubmitResult struct {
	Request *model.MatchRequest
	Match   *model.Match
}

// Submit validates the intent, puts a request into the pool and immediately
// tries to pair it.
func (c *Coordinator) Submit(ctx context.Context, p SubmitParams) (*SubmitResult, error) {
	if p.UserID == uuid.Nil || !p.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidProfile, p.Role)
	}
	subjects := ResolveSubjects(p.Subjects)
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no subjects", ErrInvalidProfile)
	}

	matches, err := c.matches.QueryMatchesForUser(ctx, p.UserID)
	if err != nil {
		return nil, storeErr("query matches", err)
	}
	for _, m := range matches {
		if m.IsActivatable() {
			return nil, ErrAlreadyMatched
		}
	}

	if err := c.supersede(ctx, p.UserID, matches); err != nil {
		return nil, err
	}

	req := &model.MatchRequest{
		UserID:     p.UserID,
		Role:       p.Role,
		Subjects:   subjects,
		GradeLevel: ResolveGradeLevel(p.GradeLevel),
		Status:     model.RequestStatusSearching,
	}
	if err := c.requests.InsertRequest(ctx, req); err != nil {
		return nil, storeErr("insert request", err)
	}

	c.logger.Info("Match request submitted",
		zap.String("request_id", req.ID.String()),
		zap.String("user_id", p.UserID.String()),
		zap.String("role", string(p.Role)),
		zap.Strings("subjects", subjects),
		zap.String("grade_level", req.GradeLevel),
	)

	res := &SubmitResult{Request: req}
	m, err := c.Pair(ctx, req.ID)
	if err != nil {
		return res, err
	}
	if m != nil {
		req.Status = model.RequestStatusMatched
		req.MatchID = &m.ID
		res.Match = m
	}
	return res, nil
}

// FindMatch submits a request built from the user's profile.
func (c *Coordinator) FindMatch(ctx context.Context, userID uuid.UUID) (*SubmitResult, error) {
	if c.profiles == nil {
		return nil, fmt.Errorf("%w: no profile provider", ErrInvalidProfile)
	}
	u, err := c.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	if u == nil || !u.Role.Valid() {
		return nil, fmt.Errorf("%w: profile has no role", ErrInvalidProfile)
	}
	return c.Submit(ctx, SubmitParams{
		UserID:     u.ID,
		Role:       u.Role,
		Subjects:   u.MatchSubjects(),
		GradeLevel: u.GradeLevel,
	})
}

// supersede takes the user's previous searching requests out of the pool and
// drops unconfirmed matches the user is walking away from.
func (c *Coordinator) supersede(ctx context.Context, userID uuid.UUID, matches []*model.Match) error {
	if _, err := c.CancelSearch(ctx, userID); err != nil {
		return err
	}
	for _, m := range matches {
		if !m.IsActive() || m.IsActivatable() {
			continue
		}
		if _, err := c.cancelMatch(ctx, m, "superseded"); err != nil {
			return err
		}
	}
	return nil
}

// Pair runs a pairing attempt for the request. It is safe to retry: a request
// that already left the pool returns the match it belongs to, if any.
func (c *Coordinator) Pair(ctx context.Context, requestID uuid.UUID) (*model.Match, error) {
	req, err := c.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if !req.IsSearching() {
			return c.matchOf(ctx, req)
		}

		pool, err := c.requests.QueryRequests(ctx, RequestQuery{
			Status:        model.RequestStatusSearching,
			Role:          req.Role.Opposite(),
			ExcludingUser: req.UserID,
		})
		if err != nil {
			return nil, storeErr("query requests", err)
		}

		cand := FindCandidate(req, pool)
		if cand == nil {
			c.logger.Debug("No candidate for request",
				zap.String("request_id", req.ID.String()),
				zap.Int("pool_size", len(pool)),
			)
			return nil, nil
		}

		m, err := c.claim(ctx, req, cand)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, errDuplicateMatch) {
			return nil, err
		}

		c.logger.Info("Pairing lost a race, retrying",
			zap.String("request_id", req.ID.String()),
			zap.String("candidate_id", cand.ID.String()),
			zap.Int("attempt", attempt+1),
		)

		// The request may have been taken by a concurrent pairing or
		// requeued into a fresh row by reconciliation.
		if req, err = c.currentRequest(ctx, req); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// currentRequest re-reads the request. When a reconciliation requeued it,
// the searching copy of the same user takes its place.
func (c *Coordinator) currentRequest(ctx context.Context, req *model.MatchRequest) (*model.MatchRequest, error) {
	cur, err := c.getRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if cur.IsSearching() || cur.Status == model.RequestStatusCancelled {
		return cur, nil
	}
	if cur.MatchID != nil {
		m, err := c.GetMatch(ctx, *cur.MatchID)
		if err != nil {
			return nil, err
		}
		if m.IsActive() {
			return cur, nil
		}
	}
	requeued, err := c.requests.QueryRequests(ctx, RequestQuery{
		Status: model.RequestStatusSearching,
		UserID: req.UserID,
	})
	if err != nil {
		return nil, storeErr("query requests", err)
	}
	if len(requeued) > 0 {
		return requeued[0], nil
	}
	return cur, nil
}

func (c *Coordinator) matchOf(ctx context.Context, req *model.MatchRequest) (*model.Match, error) {
	if req.Status != model.RequestStatusMatched || req.MatchID == nil {
		return nil, nil
	}
	m, err := c.GetMatch(ctx, *req.MatchID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return nil, nil
	}
	return m, nil
}

func newMatch(a, b *model.MatchRequest) *model.Match {
	student, tutor := a, b
	if a.Role == model.RoleTeacher {
		student, tutor = b, a
	}
	return &model.Match{
		StudentID:  student.UserID,
		TutorID:    tutor.UserID,
		Subject:    ResolveSubject(student, tutor),
		GradeLevel: ResolveGrade(student, tutor),
		Status:     model.MatchStatusActive,
	}
}

func (c *Coordinator) claim(ctx context.Context, req, cand *model.MatchRequest) (*model.Match, error) {
	m := newMatch(req, cand)

	if c.claimer != nil {
		claimed, err := c.claimer.ClaimPair(ctx, req.ID, cand.ID, m)
		if err != nil {
			return nil, storeErr("claim pair", err)
		}
		if !claimed {
			return nil, errDuplicateMatch
		}
		c.logMatched(m, req, cand)
		return m, nil
	}

	return c.claimWithReconcile(ctx, req, cand, m)
}

// claimWithReconcile pairs on stores without an atomic claim: the match is
// inserted first, both requests are claimed in a canonical order, and the
// ownership is verified by reading the rows back. A match that does not own
// both requests is cancelled and any request it stranded is requeued.
func (c *Coordinator) claimWithReconcile(ctx context.Context, req, cand *model.MatchRequest, m *model.Match) (*model.Match, error) {
	if err := c.matches.InsertMatch(ctx, m); err != nil {
		return nil, storeErr("insert match", err)
	}

	first, second := req, cand
	if older(cand, req) {
		first, second = cand, req
	}

	ok, err := c.requests.UpdateRequestStatus(ctx, first.ID, model.RequestStatusSearching, model.RequestStatusMatched, &m.ID)
	if err == nil && ok {
		_, err = c.requests.UpdateRequestStatus(ctx, second.ID, model.RequestStatusSearching, model.RequestStatusMatched, &m.ID)
	}
	if err != nil {
		c.reconcile(ctx, m, first.ID, second.ID)
		return nil, storeErr("update request status", err)
	}

	owned, err := c.ownsBoth(ctx, m.ID, first.ID, second.ID)
	if err != nil {
		c.reconcile(ctx, m, first.ID, second.ID)
		return nil, err
	}
	if !owned {
		c.logger.Warn("Duplicate match detected",
			zap.String("match_id", m.ID.String()),
			zap.String("request_id", req.ID.String()),
			zap.String("candidate_id", cand.ID.String()),
		)
		c.reconcile(ctx, m, first.ID, second.ID)
		return nil, errDuplicateMatch
	}

	c.logMatched(m, req, cand)
	return m, nil
}

func (c *Coordinator) ownsBoth(ctx context.Context, matchID uuid.UUID, ids ...uuid.UUID) (bool, error) {
	for _, id := range ids {
		r, err := c.getRequest(ctx, id)
		if err != nil {
			return false, err
		}
		if r.Status != model.RequestStatusMatched || r.MatchID == nil || *r.MatchID != matchID {
			return false, nil
		}
	}
	return true, nil
}

// reconcile cancels a redundant match and puts back into the pool every
// request that ended up claimed by it. Requests never go back to searching:
// a fresh row with the original creation time replaces them.
func (c *Coordinator) reconcile(ctx context.Context, m *model.Match, ids ...uuid.UUID) {
	if _, err := c.cancelMatch(ctx, m, "duplicate"); err != nil {
		c.logger.Error("Failed to cancel duplicate match",
			zap.String("match_id", m.ID.String()),
			zap.Error(err),
		)
	}
	for _, id := range ids {
		r, err := c.requests.GetRequest(ctx, id)
		if err != nil || r == nil {
			c.logger.Error("Failed to load request for reconciliation",
				zap.String("request_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		if r.Status != model.RequestStatusMatched || r.MatchID == nil || *r.MatchID != m.ID {
			continue
		}
		requeued := &model.MatchRequest{
			UserID:     r.UserID,
			Role:       r.Role,
			Subjects:   r.Subjects,
			GradeLevel: r.GradeLevel,
			Status:     model.RequestStatusSearching,
			CreatedAt:  r.CreatedAt,
		}
		if err := c.requests.InsertRequest(ctx, requeued); err != nil {
			c.logger.Error("Failed to requeue stranded request",
				zap.String("request_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		c.logger.Info("Stranded request requeued",
			zap.String("request_id", id.String()),
			zap.String("new_request_id", requeued.ID.String()),
			zap.String("user_id", r.UserID.String()),
		)
	}
}

func (c *Coordinator) logMatched(m *model.Match, req, cand *model.MatchRequest) {
	c.logger.Info("Match created",
		zap.String("match_id", m.ID.String()),
		zap.String("student_id", m.StudentID.String()),
		zap.String("tutor_id", m.TutorID.String()),
		zap.String("subject", m.Subject),
		zap.String("grade_level", m.GradeLevel),
		zap.String("request_id", req.ID.String()),
		zap.String("candidate_id", cand.ID.String()),
	)
}

// MatchesForUser returns every match the user takes part in, newest first.
func (c *Coordinator) MatchesForUser(ctx context.Context, userID uuid.UUID) ([]*model.Match, error) {
	ms, err := c.matches.QueryMatchesForUser(ctx, userID)
	if err != nil {
		return nil, storeErr("query matches", err)
	}
	return ms, nil
}

// CurrentMatch returns the newest active match of the user, or nil.
func (c *Coordinator) CurrentMatch(ctx context.Context, userID uuid.UUID) (*model.Match, error) {
	ms, err := c.MatchesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		if m.IsActive() {
			return m, nil
		}
	}
	return nil, nil
}

// SearchingRequest returns the user's request still in the pool, or nil.
func (c *Coordinator) SearchingRequest(ctx context.Context, userID uuid.UUID) (*model.MatchRequest, error) {
	reqs, err := c.requests.QueryRequests(ctx, RequestQuery{
		Status: model.RequestStatusSearching,
		UserID: userID,
	})
	if err != nil {
		return nil, storeErr("query requests", err)
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return reqs[len(reqs)-1], nil
}

// EngagedUsers returns every user with a searching request or an active match.
// These are the users that must keep observing their matches.
func (c *Coordinator) EngagedUsers(ctx context.Context) ([]uuid.UUID, error) {
	reqs, err := c.requests.QueryRequests(ctx, RequestQuery{Status: model.RequestStatusSearching})
	if err != nil {
		return nil, storeErr("query requests", err)
	}
	ms, err := c.matches.QueryMatches(ctx, MatchQuery{Status: model.MatchStatusActive})
	if err != nil {
		return nil, storeErr("query matches", err)
	}

	seen := make(map[uuid.UUID]bool, len(reqs)+2*len(ms))
	var out []uuid.UUID
	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, r := range reqs {
		add(r.UserID)
	}
	for _, m := range ms {
		add(m.StudentID)
		add(m.TutorID)
	}
	return out, nil
}

// GetMatch loads a match or returns ErrNotFound.
func (c *Coordinator) GetMatch(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	m, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, storeErr("get match", err)
	}
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

func (c *Coordinator) getRequest(ctx context.Context, id uuid.UUID) (*model.MatchRequest, error) {
	r, err := c.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, storeErr("get request", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

// Confirm records the participant's acceptance. Confirming twice is a no-op.
func (c *Coordinator) Confirm(ctx context.Context, matchID, userID uuid.UUID) (*model.Match, error) {
	m, err := c.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	role, ok := m.RoleOf(userID)
	if !ok {
		return nil, ErrNotParticipant
	}
	if !m.IsActive() {
		return nil, ErrMatchClosed
	}
	if m.ConfirmedBy(userID) {
		return m, nil
	}

	partnerConfirmed := m.TutorConfirmed
	if role == model.RoleTeacher {
		partnerConfirmed = m.StudentConfirmed
	}
	if partnerConfirmed {
		if err := c.ensureNoOtherConfirmed(ctx, m); err != nil {
			return nil, err
		}
	}

	yes := true
	upd := MatchUpdate{ExpectStatus: model.MatchStatusActive}
	if role == model.RoleStudent {
		upd.StudentConfirmed = &yes
	} else {
		upd.TutorConfirmed = &yes
	}

	updated, ok, err := c.matches.UpdateMatch(ctx, matchID, upd)
	if errors.Is(err, ErrAlreadyMatched) {
		return nil, ErrAlreadyMatched
	}
	if err != nil {
		return nil, storeErr("update match", err)
	}
	if !ok {
		return nil, ErrMatchClosed
	}

	c.logger.Info("Match confirmed",
		zap.String("match_id", matchID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)),
		zap.Bool("fully_confirmed", updated.IsActivatable()),
	)
	return updated, nil
}

// ensureNoOtherConfirmed keeps at most one confirmed active match per user.
func (c *Coordinator) ensureNoOtherConfirmed(ctx context.Context, m *model.Match) error {
	for _, uid := range []uuid.UUID{m.StudentID, m.TutorID} {
		ms, err := c.matches.QueryMatchesForUser(ctx, uid)
		if err != nil {
			return storeErr("query matches", err)
		}
		for _, other := range ms {
			if other.ID != m.ID && other.IsActivatable() {
				return ErrAlreadyMatched
			}
		}
	}
	return nil
}

// CancelParams names what to cancel. Either field may be zero.
type CancelParams struct {
	RequestID uuid.UUID
	MatchID   uuid.UUID
}

// Cancel takes a request out of the pool and/or cancels a match on behalf of
// its owner. Rows already in a terminal status are left untouched.
func (c *Coordinator) Cancel(ctx context.Context, userID uuid.UUID, p CancelParams) error {
	if p.RequestID == uuid.Nil && p.MatchID == uuid.Nil {
		return ErrNotFound
	}

	if p.RequestID != uuid.Nil {
		r, err := c.getRequest(ctx, p.RequestID)
		if err != nil {
			return err
		}
		if r.UserID != userID {
			return ErrNotParticipant
		}
		if r.IsSearching() {
			if err := c.cancelRequest(ctx, r.ID); err != nil {
				return err
			}
		}
	}

	if p.MatchID != uuid.Nil {
		m, err := c.GetMatch(ctx, p.MatchID)
		if err != nil {
			return err
		}
		if !m.HasUser(userID) {
			return ErrNotParticipant
		}
		if _, err := c.cancelMatch(ctx, m, "cancelled by "+userID.String()); err != nil {
			return err
		}
	}
	return nil
}

// CancelSearch removes every searching request of the user from the pool.
func (c *Coordinator) CancelSearch(ctx context.Context, userID uuid.UUID) (int, error) {
	reqs, err := c.requests.QueryRequests(ctx, RequestQuery{
		Status: model.RequestStatusSearching,
		UserID: userID,
	})
	if err != nil {
		return 0, storeErr("query requests", err)
	}
	for _, r := range reqs {
		if err := c.cancelRequest(ctx, r.ID); err != nil {
			return 0, err
		}
	}
	return len(reqs), nil
}

func (c *Coordinator) cancelRequest(ctx context.Context, id uuid.UUID) error {
	ok, err := c.requests.UpdateRequestStatus(ctx, id, model.RequestStatusSearching, model.RequestStatusCancelled, nil)
	if err != nil {
		return storeErr("update request status", err)
	}
	if ok {
		c.logger.Info("Match request cancelled", zap.String("request_id", id.String()))
	}
	return nil
}

func (c *Coordinator) cancelMatch(ctx context.Context, m *model.Match, reason string) (bool, error) {
	if !m.IsActive() {
		return false, nil
	}
	status := model.MatchStatusCancelled
	_, ok, err := c.matches.UpdateMatch(ctx, m.ID, MatchUpdate{
		ExpectStatus: model.MatchStatusActive,
		Status:       &status,
	})
	if err != nil {
		return false, storeErr("update match", err)
	}
	if ok {
		c.logger.Info("Match cancelled",
			zap.String("match_id", m.ID.String()),
			zap.String("reason", reason),
		)
	}
	return ok, nil
}

// IsFullyConfirmed reports whether the match may be handed off to a call.
func IsFullyConfirmed(m *model.Match) bool {
	return m != nil && m.IsActivatable()
}

// Handoff passes a fully confirmed match to the call session on behalf of
// one participant. The match is re-read so a cancellation during the grace
// delay wins.
func (c *Coordinator) Handoff(ctx context.Context, matchID, userID uuid.UUID) error {
	m, err := c.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !m.HasUser(userID) {
		return ErrNotParticipant
	}
	if !IsFullyConfirmed(m) {
		return ErrMatchClosed
	}
	if c.handoff == nil {
		return nil
	}
	if err := c.handoff.BeginSession(ctx, matchID, userID); err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	c.logger.Info("Session handed off",
		zap.String("match_id", matchID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

// EndActiveMatch completes the user's confirmed match unless an unexpired
// extension for the student and the match's subject/grade is in place.
func (c *Coordinator) EndActiveMatch(ctx context.Context, userID uuid.UUID) (*model.Match, error) {
	ms, err := c.MatchesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var target *model.Match
	for _, m := range ms {
		if m.IsActivatable() {
			target = m
			break
		}
	}
	if target == nil {
		return nil, ErrNoActiveMatch
	}

	if c.extensions != nil {
		active, err := c.extensions.HasActiveExtension(ctx, target.StudentID, target.Subject, target.GradeLevel)
		if err != nil {
			return nil, storeErr("check extension", err)
		}
		if active {
			c.logger.Info("End of match blocked by extension",
				zap.String("match_id", target.ID.String()),
				zap.String("user_id", userID.String()),
			)
			return nil, ErrBlocked
		}
	}

	status := model.MatchStatusCompleted
	updated, ok, err := c.matches.UpdateMatch(ctx, target.ID, MatchUpdate{
		ExpectStatus: model.MatchStatusActive,
		Status:       &status,
	})
	if err != nil {
		return nil, storeErr("update match", err)
	}
	if !ok {
		return nil, ErrMatchClosed
	}

	c.logger.Info("Match completed",
		zap.String("match_id", target.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return updated, nil
}

// ExpiryResult counts rows closed by ExpireStale.
type ExpiryResult struct {
	Requests int
	Matches  int
}

// ExpireStale cancels searching requests older than requestTTL and active
// matches still missing a confirmation after confirmTTL. A zero TTL skips the
// corresponding sweep.
func (c *Coordinator) ExpireStale(ctx context.Context, requestTTL, confirmTTL time.Duration) (ExpiryResult, error) {
	var res ExpiryResult
	now := c.now()

	if requestTTL > 0 {
		reqs, err := c.requests.QueryRequests(ctx, RequestQuery{
			Status:        model.RequestStatusSearching,
			CreatedBefore: now.Add(-requestTTL),
		})
		if err != nil {
			return res, storeErr("query requests", err)
		}
		for _, r := range reqs {
			ok, err := c.requests.UpdateRequestStatus(ctx, r.ID, model.RequestStatusSearching, model.RequestStatusCancelled, nil)
			if err != nil {
				return res, storeErr("update request status", err)
			}
			if ok {
				res.Requests++
			}
		}
	}

	if confirmTTL > 0 {
		ms, err := c.matches.QueryMatches(ctx, MatchQuery{
			Status:        model.MatchStatusActive,
			Unconfirmed:   true,
			CreatedBefore: now.Add(-confirmTTL),
		})
		if err != nil {
			return res, storeErr("query matches", err)
		}
		for _, m := range ms {
			ok, err := c.cancelMatch(ctx, m, "confirmation timeout")
			if err != nil {
				return res, err
			}
			if ok {
				res.Matches++
			}
		}
	}

	if res.Requests > 0 || res.Matches > 0 {
		c.logger.Info("Stale matchmaking rows expired",
			zap.Int("requests", res.Requests),
			zap.Int("matches", res.Matches),
		)
	}
	return res, nil
}
