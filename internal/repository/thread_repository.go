package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// Роли участника для фильтрации списка диалогов.
const (
	ThreadRoleBuyer  = "buyer"
	ThreadRoleSeller = "seller"
	ThreadRoleAll    = "all"
)

const threadColumns = `
	id, listing_id, buyer_id, seller_id,
	blocked_by, blocked_at,
	buyer_last_read_message_id, buyer_last_read_at,
	seller_last_read_message_id, seller_last_read_at,
	buyer_unread, seller_unread,
	last_message_id, last_message_at,
	created_at, updated_at`

// ThreadRepository отвечает за работу с таблицей threads.
type ThreadRepository struct {
	db *sqlx.DB
}

// NewThreadRepository создаёт экземпляр репозитория.
func NewThreadRepository(db *sqlx.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// GetOrCreate находит либо создаёт диалог по уникальной тройке
// (listing_id, buyer_id, seller_id). Конкурирующие первые обращения
// сходятся к одной записи: проигравший гонку INSERT ничего не вставляет
// из-за ON CONFLICT DO NOTHING и перечитывает существующую строку.
func (r *ThreadRepository) GetOrCreate(ctx context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Thread, bool, error) {
	var thread models.Thread
	insert := `
		INSERT INTO threads (listing_id, buyer_id, seller_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, buyer_id, seller_id) DO NOTHING
		RETURNING ` + threadColumns

	err := r.db.GetContext(ctx, &thread, insert, listingID, buyerID, sellerID)
	if err == nil {
		return &thread, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать диалог")
	}

	existing, err := r.GetByTriple(ctx, listingID, buyerID, sellerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID возвращает диалог по идентификатору.
func (r *ThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Thread, error) {
	var thread models.Thread
	query := `SELECT ` + threadColumns + ` FROM threads WHERE id = $1`
	if err := r.db.GetContext(ctx, &thread, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrThreadNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить диалог")
	}
	return &thread, nil
}

// GetByTriple возвращает диалог по тройке объявление-покупатель-продавец.
func (r *ThreadRepository) GetByTriple(ctx context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Thread, error) {
	var thread models.Thread
	query := `SELECT ` + threadColumns + ` FROM threads WHERE listing_id = $1 AND buyer_id = $2 AND seller_id = $3`
	if err := r.db.GetContext(ctx, &thread, query, listingID, buyerID, sellerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrThreadNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить диалог")
	}
	return &thread, nil
}

// ListForUser возвращает диалоги пользователя, отсортированные по времени
// последнего сообщения. Заблокированные диалоги видит только инициатор
// блокировки.
func (r *ThreadRepository) ListForUser(ctx context.Context, userID uuid.UUID, role string) ([]models.ThreadView, error) {
	query := `
		SELECT t.id, t.listing_id, t.buyer_id, t.seller_id,
			t.blocked_by, t.blocked_at,
			t.buyer_last_read_message_id, t.buyer_last_read_at,
			t.seller_last_read_message_id, t.seller_last_read_at,
			t.buyer_unread, t.seller_unread,
			t.last_message_id, t.last_message_at,
			t.created_at, t.updated_at,
			l.title AS listing_title, l.price AS listing_price
		FROM threads t
		JOIN listings l ON l.id = t.listing_id
		WHERE (t.blocked_by IS NULL OR t.blocked_by = $1)`

	switch role {
	case ThreadRoleBuyer:
		query += ` AND t.buyer_id = $1`
	case ThreadRoleSeller:
		query += ` AND t.seller_id = $1`
	default:
		query += ` AND (t.buyer_id = $1 OR t.seller_id = $1)`
	}
	query += ` ORDER BY t.last_message_at DESC NULLS LAST, t.created_at DESC`

	var views []models.ThreadView
	if err := r.db.SelectContext(ctx, &views, query, userID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить диалоги")
	}
	return views, nil
}

// Block однократно помечает диалог заблокированным. Обновление срабатывает
// только если блокировка ещё не установлена, поэтому повторный вызов того
// же участника безопасен, а перебить чужую блокировку нельзя.
func (r *ThreadRepository) Block(ctx context.Context, threadID, actorID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE threads
		SET blocked_by = $2, blocked_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND blocked_by IS NULL
	`, threadID, actorID)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось заблокировать диалог")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось заблокировать диалог")
	}
	return affected > 0, nil
}
