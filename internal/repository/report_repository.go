package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// Код ошибки PostgreSQL для нарушения уникального ограничения.
const pgUniqueViolation = "23505"

// ReportRepository отвечает за работу с таблицей message_reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository создаёт экземпляр репозитория.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create сохраняет жалобу. Уникальный индекс по (reporter_id, message_id)
// служит идемпотентным ограждением: повторная жалоба того же пользователя
// на то же сообщение возвращает конфликт, дубликат не создаётся.
func (r *ReportRepository) Create(ctx context.Context, report *models.MessageReport) error {
	query := `
		INSERT INTO message_reports (reporter_id, message_id, reason, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at
	`
	err := r.db.QueryRowxContext(
		ctx, query,
		report.ReporterID, report.MessageID, report.Reason, report.Description,
	).Scan(&report.ID, &report.Status, &report.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return apperror.ErrDuplicateReport
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить жалобу")
	}
	return nil
}

// GetByID возвращает жалобу по идентификатору.
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MessageReport, error) {
	var report models.MessageReport
	query := `
		SELECT id, reporter_id, message_id, reason, description, status, reviewed_by, reviewed_at, created_at
		FROM message_reports
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить жалобу")
	}
	return &report, nil
}

// ListPending возвращает нерассмотренные жалобы от старых к новым.
func (r *ReportRepository) ListPending(ctx context.Context, limit, offset int) ([]models.MessageReport, error) {
	var reports []models.MessageReport
	query := `
		SELECT id, reporter_id, message_id, reason, description, status, reviewed_by, reviewed_at, created_at
		FROM message_reports
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &reports, query, models.ReportStatusPending, limit, offset); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить жалобы")
	}
	return reports, nil
}

// UpdateStatus фиксирует решение модератора по жалобе.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE message_reports
		SET status = $2, reviewed_by = $3, reviewed_at = NOW()
		WHERE id = $1
	`, id, status, reviewerID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус жалобы")
	}
	return nil
}
