package matchmaking_test

import (
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func request(role model.Role, grade string, age time.Duration, subjects ...string) *model.MatchRequest {
	return &model.MatchRequest{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Role:       role,
		Subjects:   subjects,
		GradeLevel: grade,
		Status:     model.RequestStatusSearching,
		CreatedAt:  t0.Add(-age),
	}
}

func TestFindCandidate_NeverPairsSameRole(t *testing.T) {
	req := request(model.RoleStudent, "5", 0, "Math")
	pool := []*model.MatchRequest{
		request(model.RoleStudent, "5", time.Hour, "Math"),
		request(model.RoleStudent, "5", 2*time.Hour, "Math"),
	}

	assert.Nil(t, matchmaking.FindCandidate(req, pool))

	tutor := request(model.RoleTeacher, "5", time.Minute, "Math")
	pool = append(pool, tutor)

	got := matchmaking.FindCandidate(req, pool)
	require.NotNil(t, got)
	assert.Equal(t, tutor.ID, got.ID)
	assert.NotEqual(t, req.Role, got.Role)
}

func TestFindCandidate_Filters(t *testing.T) {
	req := request(model.RoleStudent, "5", 0, "Math", "Physics")

	own := request(model.RoleTeacher, "5", time.Hour, "Math")
	own.UserID = req.UserID

	matched := request(model.RoleTeacher, "5", time.Hour, "Math")
	matched.Status = model.RequestStatusMatched

	tests := []struct {
		name string
		cand *model.MatchRequest
		want bool
	}{
		{"shared subject", request(model.RoleTeacher, "5", time.Hour, "Physics"), true},
		{"subject case and spaces ignored", request(model.RoleTeacher, "5", time.Hour, "  math "), true},
		{"disjoint subjects", request(model.RoleTeacher, "5", time.Hour, "History"), false},
		{"different grade", request(model.RoleTeacher, "7", time.Hour, "Math"), false},
		{"tutor grade unspecified", request(model.RoleTeacher, model.GradeUnspecified, time.Hour, "Math"), true},
		{"tutor grade empty", request(model.RoleTeacher, "", time.Hour, "Math"), true},
		{"tutor grade General", request(model.RoleTeacher, "general", time.Hour, "Math"), true},
		{"same user", own, false},
		{"not searching", matched, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchmaking.FindCandidate(req, []*model.MatchRequest{tt.cand})
			assert.Equal(t, tt.want, got != nil)
		})
	}
}

func TestFindCandidate_OldestWins(t *testing.T) {
	req := request(model.RoleStudent, "5", 0, "Math")
	young := request(model.RoleTeacher, "5", time.Minute, "Math")
	old := request(model.RoleTeacher, "5", time.Hour, "Math")
	mid := request(model.RoleTeacher, "5", 10*time.Minute, "Math")

	got := matchmaking.FindCandidate(req, []*model.MatchRequest{young, old, mid})
	require.NotNil(t, got)
	assert.Equal(t, old.ID, got.ID)
}

func TestFindCandidate_TieBrokenByID(t *testing.T) {
	req := request(model.RoleStudent, "5", 0, "Math")
	a := request(model.RoleTeacher, "5", time.Hour, "Math")
	b := request(model.RoleTeacher, "5", time.Hour, "Math")

	want := a
	if b.ID.String() < a.ID.String() {
		want = b
	}

	assert.Equal(t, want.ID, matchmaking.FindCandidate(req, []*model.MatchRequest{a, b}).ID)
	assert.Equal(t, want.ID, matchmaking.FindCandidate(req, []*model.MatchRequest{b, a}).ID)
}

func TestGeneralIsNotASubjectWildcard(t *testing.T) {
	req := request(model.RoleStudent, "5", 0, model.SubjectGeneral)

	assert.Nil(t, matchmaking.FindCandidate(req, []*model.MatchRequest{
		request(model.RoleTeacher, "5", time.Hour, "Math"),
	}))
	assert.NotNil(t, matchmaking.FindCandidate(req, []*model.MatchRequest{
		request(model.RoleTeacher, "5", time.Hour, "Math", model.SubjectGeneral),
	}))
}

func TestResolveSubject_PicksSharedSubjectInStudentOrder(t *testing.T) {
	student := request(model.RoleStudent, "5", 0, "Science", "Math")
	tutor := request(model.RoleTeacher, "5", 0, "Math", "Science")

	subject := matchmaking.ResolveSubject(student, tutor)

	assert.Equal(t, "Science", subject)
	assert.Contains(t, student.Subjects, subject)
	assert.Contains(t, tutor.Subjects, subject)
}

func TestResolveGrade(t *testing.T) {
	tests := []struct {
		name         string
		student, tut string
		want         string
	}{
		{"both concrete", "5", "5", "5"},
		{"student wildcard", model.GradeUnspecified, "7", "7"},
		{"tutor wildcard", "3", "", "3"},
		{"both wildcard", "", model.GradeUnspecified, model.GradeUnspecified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := request(model.RoleStudent, tt.student, 0, "Math")
			tu := request(model.RoleTeacher, tt.tut, 0, "Math")
			assert.Equal(t, tt.want, matchmaking.ResolveGrade(s, tu))
		})
	}
}

func TestResolveSubjects(t *testing.T) {
	assert.Equal(t, []string{model.SubjectGeneral}, matchmaking.ResolveSubjects(nil))
	assert.Empty(t, matchmaking.ResolveSubjects([]string{}))
	assert.Empty(t, matchmaking.ResolveSubjects([]string{" ", ""}))
	assert.Equal(t,
		[]string{"Math", "Physics"},
		matchmaking.ResolveSubjects([]string{" Math", "math", "", "Physics "}),
	)
}

func TestResolveGradeLevel(t *testing.T) {
	assert.Equal(t, model.GradeUnspecified, matchmaking.ResolveGradeLevel(""))
	assert.Equal(t, model.GradeUnspecified, matchmaking.ResolveGradeLevel("   "))
	assert.Equal(t, "5", matchmaking.ResolveGradeLevel(" 5 "))
}
