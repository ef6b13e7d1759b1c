package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/Freeeeeet/tutor_match_bot/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const extensionColumns = `id, student_id, tutor_id, match_id, subject, grade_level, reason, status, expires_at, created_at`

type ExtensionRepository struct {
	*base.Repository
}

func NewExtensionRepository(pool *pgxpool.Pool) *ExtensionRepository {
	return &ExtensionRepository{Repository: base.NewRepository(pool)}
}

// CreateExtension создаёт запрос на продление
func (r *ExtensionRepository) CreateExtension(ctx context.Context, ext *model.Extension) error {
	if ext.Status == "" {
		ext.Status = model.ExtensionStatusPending
	}
	if err := model.Validate(ext); err != nil {
		return err
	}

	query := `
		INSERT INTO tutor_extensions (student_id, tutor_id, match_id, subject, grade_level, reason, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		ext.StudentID,
		ext.TutorID,
		ext.MatchID,
		ext.Subject,
		ext.GradeLevel,
		ext.Reason,
		string(ext.Status),
		ext.ExpiresAt,
	).Scan(&ext.ID, &ext.CreatedAt)

	if err != nil {
		return fmt.Errorf("create extension: %w", err)
	}

	return nil
}

// GetExtension получает продление по ID
func (r *ExtensionRepository) GetExtension(ctx context.Context, id uuid.UUID) (*model.Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM tutor_extensions WHERE id = $1`

	ext, err := scanExtension(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get extension: %w", err)
	}

	return ext, nil
}

// RespondExtension фиксирует ответ студента на pending продление
func (r *ExtensionRepository) RespondExtension(ctx context.Context, id uuid.UUID, status model.ExtensionStatus, expiresAt *time.Time) (bool, error) {
	query := `
		UPDATE tutor_extensions
		SET status = $1, expires_at = COALESCE($2, expires_at)
		WHERE id = $3 AND status = 'pending'
	`

	affected, err := r.ExecAffected(ctx, query, string(status), expiresAt, id)
	if err != nil {
		return false, fmt.Errorf("respond extension: %w", err)
	}

	return affected == 1, nil
}

// HasActiveExtension проверяет наличие непросроченного продления для студента и предмета/класса
func (r *ExtensionRepository) HasActiveExtension(ctx context.Context, studentID uuid.UUID, subject, gradeLevel string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM tutor_extensions
			WHERE student_id = $1
			  AND lower(subject) = lower($2)
			  AND lower(grade_level) = lower($3)
			  AND status = 'accepted'
			  AND expires_at > $4
		)
	`

	var exists bool
	if err := r.QueryRow(ctx, query, studentID, subject, gradeLevel, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active extension: %w", err)
	}

	return exists, nil
}

// GetPendingExtensionsByStudent получает продления, ожидающие ответа студента
func (r *ExtensionRepository) GetPendingExtensionsByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Extension, error) {
	query := `
		SELECT ` + extensionColumns + `
		FROM tutor_extensions
		WHERE student_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`

	rows, err := r.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get pending extensions: %w", err)
	}
	defer rows.Close()

	var exts []*model.Extension
	for rows.Next() {
		ext, err := scanExtension(rows)
		if err != nil {
			return nil, fmt.Errorf("scan extension: %w", err)
		}
		exts = append(exts, ext)
	}

	return exts, rows.Err()
}

func scanExtension(row pgx.Row) (*model.Extension, error) {
	var (
		ext    model.Extension
		status string
	)
	err := row.Scan(
		&ext.ID,
		&ext.StudentID,
		&ext.TutorID,
		&ext.MatchID,
		&ext.Subject,
		&ext.GradeLevel,
		&ext.Reason,
		&status,
		&ext.ExpiresAt,
		&ext.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	ext.Status = model.ExtensionStatus(status)
	return &ext, nil
}
