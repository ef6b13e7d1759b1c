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

const requestColumns = `id, user_id, role, subjects, grade_level, status, match_id, created_at`

type MatchRequestRepository struct {
	*base.Repository
}

func NewMatchRequestRepository(pool *pgxpool.Pool) *MatchRequestRepository {
	return &MatchRequestRepository{Repository: base.NewRepository(pool)}
}

// InsertRequest создаёт заявку на подбор пары
func (r *MatchRequestRepository) InsertRequest(ctx context.Context, req *model.MatchRequest) error {
	if req.Status == "" {
		req.Status = model.RequestStatusSearching
	}
	if err := model.Validate(req); err != nil {
		return err
	}

	// created_at передаётся явно только при переносе заявки обратно в пул
	var createdAt any
	if !req.CreatedAt.IsZero() {
		createdAt = req.CreatedAt
	}

	query := `
		INSERT INTO match_requests (user_id, role, subjects, grade_level, status, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, now()))
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		req.UserID,
		string(req.Role),
		req.Subjects,
		req.GradeLevel,
		string(req.Status),
		createdAt,
	).Scan(&req.ID, &req.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("insert match request: user %s already has a searching request: %w", req.UserID, err)
		}
		return fmt.Errorf("insert match request: %w", err)
	}

	return nil
}

// GetRequest получает заявку по ID
func (r *MatchRequestRepository) GetRequest(ctx context.Context, id uuid.UUID) (*model.MatchRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM match_requests WHERE id = $1`

	req, err := scanRequest(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get match request: %w", err)
	}

	return req, nil
}

// UpdateRequestStatus переводит заявку из from в to, только если текущий статус равен from
func (r *MatchRequestRepository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, from, to model.RequestStatus, matchID *uuid.UUID) (bool, error) {
	if !from.CanTransition(to) {
		return false, nil
	}

	query := `
		UPDATE match_requests
		SET status = $1, match_id = COALESCE($2, match_id)
		WHERE id = $3 AND status = $4
	`

	affected, err := r.ExecAffected(ctx, query, string(to), matchID, id, string(from))
	if err != nil {
		return false, fmt.Errorf("update match request status: %w", err)
	}

	return affected == 1, nil
}

// QueryRequests возвращает заявки по фильтру, старые первыми
func (r *MatchRequestRepository) QueryRequests(ctx context.Context, q matchmaking.RequestQuery) ([]*model.MatchRequest, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if q.Role != "" {
		add("role = $%d", string(q.Role))
	}
	if q.UserID != uuid.Nil {
		add("user_id = $%d", q.UserID)
	}
	if q.ExcludingUser != uuid.Nil {
		add("user_id <> $%d", q.ExcludingUser)
	}
	if !q.CreatedBefore.IsZero() {
		add("created_at < $%d", q.CreatedBefore)
	}

	query := `SELECT ` + requestColumns + ` FROM match_requests`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query match requests: %w", err)
	}
	defer rows.Close()

	var reqs []*model.MatchRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match request: %w", err)
		}
		reqs = append(reqs, req)
	}

	return reqs, rows.Err()
}

// ClaimPair атомарно создаёт матч и переводит обе заявки в matched.
// Если хотя бы одна заявка уже не в поиске, ничего не меняется.
func (r *MatchRequestRepository) ClaimPair(ctx context.Context, a, b uuid.UUID, m *model.Match) (bool, error) {
	if err := model.Validate(m); err != nil {
		return false, err
	}

	// Начинаем транзакцию
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем обе заявки в одном порядке, чтобы встречные транзакции не взаимоблокировались
	rows, err := tx.Query(ctx, `
		SELECT id FROM match_requests
		WHERE id = ANY($1) AND status = 'searching'
		ORDER BY id
		FOR UPDATE
	`, []uuid.UUID{a, b})
	if err != nil {
		return false, fmt.Errorf("lock match requests: %w", err)
	}
	locked := 0
	for rows.Next() {
		locked++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("lock match requests: %w", err)
	}

	if locked != 2 {
		return false, nil
	}

	if err := insertMatch(ctx, tx, m); err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE match_requests
		SET status = 'matched', match_id = $1
		WHERE id = ANY($2) AND status = 'searching'
	`, m.ID, []uuid.UUID{a, b})
	if err != nil {
		return false, fmt.Errorf("claim match requests: %w", err)
	}
	if tag.RowsAffected() != 2 {
		return false, nil
	}

	// Коммитим транзакцию
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	return true, nil
}

func scanRequest(row pgx.Row) (*model.MatchRequest, error) {
	var (
		req    model.MatchRequest
		role   string
		status string
	)
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&role,
		&req.Subjects,
		&req.GradeLevel,
		&status,
		&req.MatchID,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Role = model.Role(role)
	req.Status = model.RequestStatus(status)
	return &req, nil
}
