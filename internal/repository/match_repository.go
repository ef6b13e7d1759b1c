package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/Freeeeeet/tutor_match_bot/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const matchColumns = `id, student_id, tutor_id, subject, grade_level, status, student_confirmed, tutor_confirmed, created_at, updated_at`

type MatchRepository struct {
	*base.Repository
}

func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{Repository: base.NewRepository(pool)}
}

// querier общий интерфейс пула и транзакции
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertMatch(ctx context.Context, q querier, m *model.Match) error {
	if m.Status == "" {
		m.Status = model.MatchStatusActive
	}

	query := `
		INSERT INTO matches (student_id, tutor_id, subject, grade_level, status, student_confirmed, tutor_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(
		ctx, query,
		m.StudentID,
		m.TutorID,
		m.Subject,
		m.GradeLevel,
		string(m.Status),
		m.StudentConfirmed,
		m.TutorConfirmed,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	return nil
}

// InsertMatch создаёт матч
func (r *MatchRepository) InsertMatch(ctx context.Context, m *model.Match) error {
	if m.Status == "" {
		m.Status = model.MatchStatusActive
	}
	if err := model.Validate(m); err != nil {
		return err
	}
	return insertMatch(ctx, r.Pool(), m)
}

// GetMatch получает матч по ID
func (r *MatchRepository) GetMatch(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m, err := scanMatch(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get match: %w", err)
	}

	return m, nil
}

// UpdateMatch обновляет отдельные поля матча, если выполняется условие по статусу.
// Переходы статуса разрешены только из active.
func (r *MatchRepository) UpdateMatch(ctx context.Context, id uuid.UUID, upd matchmaking.MatchUpdate) (*model.Match, bool, error) {
	var (
		sets  []string
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if upd.Status != nil {
		sets = append(sets, "status = "+arg(string(*upd.Status)))
		conds = append(conds, "(status = "+arg(string(*upd.Status))+" OR status = 'active')")
	}
	if upd.StudentConfirmed != nil {
		sets = append(sets, "student_confirmed = "+arg(*upd.StudentConfirmed))
	}
	if upd.TutorConfirmed != nil {
		sets = append(sets, "tutor_confirmed = "+arg(*upd.TutorConfirmed))
	}
	if upd.ExpectStatus != "" {
		conds = append(conds, "status = "+arg(string(upd.ExpectStatus)))
	}
	sets = append(sets, "updated_at = now()")
	conds = append(conds, "id = "+arg(id))

	query := `UPDATE matches SET ` + strings.Join(sets, ", ") +
		` WHERE ` + strings.Join(conds, " AND ") +
		` RETURNING ` + matchColumns

	m, err := scanMatch(r.QueryRow(ctx, query, args...))
	if err == nil {
		return m, true, nil
	}
	if base.IsUniqueViolation(err) {
		// Второй подтверждённый активный матч участника
		return nil, false, fmt.Errorf("update match: %w", matchmaking.ErrAlreadyMatched)
	}
	if !base.IsNotFound(err) {
		return nil, false, fmt.Errorf("update match: %w", err)
	}

	// Условие не выполнилось: возвращаем текущее состояние
	cur, err := r.GetMatch(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return cur, false, nil
}

// QueryMatchesForUser получает все матчи пользователя, новые первыми
func (r *MatchRepository) QueryMatchesForUser(ctx context.Context, userID uuid.UUID) ([]*model.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE student_id = $1 OR tutor_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query matches for user: %w", err)
	}
	return collectMatches(rows)
}

// QueryMatches получает матчи по фильтру, новые первыми
func (r *MatchRepository) QueryMatches(ctx context.Context, q matchmaking.MatchQuery) ([]*model.Match, error) {
	var (
		conds []string
		args  []any
	)
	if q.Status != "" {
		args = append(args, string(q.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.Unconfirmed {
		conds = append(conds, "NOT (student_confirmed AND tutor_confirmed)")
	}
	if !q.CreatedBefore.IsZero() {
		args = append(args, q.CreatedBefore)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := `SELECT ` + matchColumns + ` FROM matches`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	return collectMatches(rows)
}

func collectMatches(rows pgx.Rows) ([]*model.Match, error) {
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func scanMatch(row pgx.Row) (*model.Match, error) {
	var (
		m      model.Match
		status string
	)
	err := row.Scan(
		&m.ID,
		&m.StudentID,
		&m.TutorID,
		&m.Subject,
		&m.GradeLevel,
		&status,
		&m.StudentConfirmed,
		&m.TutorConfirmed,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Status = model.MatchStatus(status)
	return &m, nil
}
