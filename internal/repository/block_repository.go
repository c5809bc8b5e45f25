package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// BlockRepository отвечает за работу с таблицей user_blocks.
type BlockRepository struct {
	db *sqlx.DB
}

// NewBlockRepository создаёт экземпляр репозитория.
func NewBlockRepository(db *sqlx.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// Create сохраняет блокировку. Повторная блокировка той же пары — no-op
// за счёт уникального индекса и ON CONFLICT DO NOTHING.
func (r *BlockRepository) Create(ctx context.Context, block *models.UserBlock) error {
	query := `
		INSERT INTO user_blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, block.BlockerID, block.BlockedID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить блокировку")
	}
	return nil
}

// ExistsBetween проверяет блокировку в любую сторону между двумя
// пользователями.
func (r *BlockRepository) ExistsBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM user_blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, a, b); err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить блокировку")
	}
	return exists, nil
}
