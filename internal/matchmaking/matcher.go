package matchmaking

import (
	"strings"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
)

// FindCandidate picks the partner for req out of pool, or nil. Only searching
// requests of the opposite role and another user qualify; their subjects must
// intersect and their grades must be compatible. The oldest candidate wins.
func FindCandidate(req *model.MatchRequest, pool []*model.MatchRequest) *model.MatchRequest {
	var best *model.MatchRequest
	for _, c := range pool {
		if !compatible(req, c) {
			continue
		}
		if best == nil || older(c, best) {
			best = c
		}
	}
	return best
}

func compatible(req, c *model.MatchRequest) bool {
	if c == nil || c.Role == req.Role || c.UserID == req.UserID || !c.IsSearching() {
		return false
	}
	return subjectsIntersect(req.Subjects, c.Subjects) && GradesCompatible(req.GradeLevel, c.GradeLevel)
}

func older(a, b *model.MatchRequest) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID.String() < b.ID.String()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func subjectsIntersect(a, b []string) bool {
	set := subjectSet(b)
	for _, s := range a {
		if _, ok := set[normalize(s)]; ok {
			return true
		}
	}
	return false
}

func subjectSet(subjects []string) map[string]struct{} {
	set := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		set[normalize(s)] = struct{}{}
	}
	return set
}

// GradesCompatible accepts equal grades, or any grade when either side left
// it unspecified.
func GradesCompatible(a, b string) bool {
	if isWildcardGrade(a) || isWildcardGrade(b) {
		return true
	}
	return normalize(a) == normalize(b)
}

func isWildcardGrade(g string) bool {
	switch normalize(g) {
	case "", strings.ToLower(model.GradeUnspecified), strings.ToLower(model.SubjectGeneral):
		return true
	}
	return false
}

// ResolveSubject returns the first subject of the student's list that the
// tutor also offers, or General when the lists do not overlap.
func ResolveSubject(student, tutor *model.MatchRequest) string {
	set := subjectSet(tutor.Subjects)
	for _, s := range student.Subjects {
		if _, ok := set[normalize(s)]; ok {
			return s
		}
	}
	return model.SubjectGeneral
}

// ResolveGrade prefers a concrete grade over a wildcard one.
func ResolveGrade(student, tutor *model.MatchRequest) string {
	if !isWildcardGrade(student.GradeLevel) {
		return student.GradeLevel
	}
	if !isWildcardGrade(tutor.GradeLevel) {
		return tutor.GradeLevel
	}
	return model.GradeUnspecified
}

// ResolveSubjects normalizes the subjects an actor declared. A nil list means
// the actor never declared any and falls back to General; a declared list is
// trimmed and deduplicated and may come out empty.
func ResolveSubjects(declared []string) []string {
	if declared == nil {
		return []string{model.SubjectGeneral}
	}
	seen := make(map[string]struct{}, len(declared))
	out := make([]string, 0, len(declared))
	for _, s := range declared {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[normalize(s)]; dup {
			continue
		}
		seen[normalize(s)] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ResolveGradeLevel maps an empty grade to the unspecified sentinel.
func ResolveGradeLevel(grade string) string {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return model.GradeUnspecified
	}
	return grade
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
