package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository/common"
)

const messageColumns = `
	id, conversation_kind, conversation_id, sender_id,
	content, file_url, file_type, status, is_edited,
	created_at, updated_at`

// MessageRepository отвечает за работу с таблицами messages и message_reads.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository создаёт экземпляр репозитория.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateInThread в одной транзакции создаёт сообщение в диалоге и
// обновляет указатель последнего сообщения вместе со счётчиком
// непрочитанных получателя. Инкремент выполняется выражением
// "<колонка> + 1" по id диалога, а не чтением-записью копии, поэтому
// конкурирующие отправки в один диалог не теряют обновлений. Частичных
// записей не остаётся: либо фиксируются обе операции, либо ни одной.
func (r *MessageRepository) CreateInThread(ctx context.Context, msg *models.Message, recipientIsBuyer bool) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		insert := `
			INSERT INTO messages (conversation_kind, conversation_id, sender_id, content, file_url, file_type, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowxContext(
			ctx, insert,
			models.ConversationThread, msg.ConversationID, msg.SenderID,
			msg.Content, msg.FileURL, msg.FileType, models.MessageStatusSent,
		).Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать сообщение")
		}
		msg.ConversationKind = models.ConversationThread
		msg.Status = models.MessageStatusSent

		counter := "seller_unread"
		if recipientIsBuyer {
			counter = "buyer_unread"
		}
		update := `
			UPDATE threads
			SET last_message_id = $2, last_message_at = $3,
				` + counter + ` = ` + counter + ` + 1,
				updated_at = NOW()
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, update, msg.ConversationID, msg.ID, msg.CreatedAt); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить диалог")
		}
		return nil
	})
}

// GetByID возвращает сообщение по идентификатору.
func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	return common.GetByID[models.Message](ctx, r.db, "messages", id, apperror.ErrMessageNotFound)
}

// ListByThread возвращает страницу сообщений диалога. Выборка идёт от
// новых к старым, хронологический порядок восстанавливает сервис.
func (r *MessageRepository) ListByThread(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_kind = $1 AND conversation_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	if err := r.db.SelectContext(ctx, &messages, query, models.ConversationThread, threadID, limit, offset); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить сообщения")
	}
	return messages, nil
}

// LoadReads подгружает квитанции прочтения для набора сообщений.
func (r *MessageRepository) LoadReads(ctx context.Context, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	var reads []models.MessageRead
	query := `SELECT message_id, reader_id, read_at FROM message_reads WHERE message_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &reads, query, pq.Array(ids)); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить квитанции прочтения")
	}

	byMessage := make(map[uuid.UUID][]models.MessageRead, len(messages))
	for _, read := range reads {
		byMessage[read.MessageID] = append(byMessage[read.MessageID], read)
	}
	for i := range messages {
		messages[i].ReadBy = byMessage[messages[i].ID]
	}
	return nil
}

// MarkThreadRead в одной транзакции переводит курсор читателя на последнее
// сообщение диалога, обнуляет его счётчик непрочитанных, массово добавляет
// квитанции прочтения для сообщений собеседника и продвигает их статус до
// seen. Вставка квитанций идемпотентна за счёт ON CONFLICT DO NOTHING:
// повторный вызов без новых сообщений ничего не меняет. Сообщения самого
// читателя квитанций не получают.
func (r *MessageRepository) MarkThreadRead(ctx context.Context, threadID, readerID uuid.UUID, readerIsBuyer bool) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var last struct {
			ID        uuid.UUID `db:"id"`
			CreatedAt time.Time `db:"created_at"`
		}
		err := tx.GetContext(ctx, &last, `
			SELECT id, created_at FROM messages
			WHERE conversation_kind = $1 AND conversation_id = $2
			ORDER BY created_at DESC
			LIMIT 1
		`, models.ConversationThread, threadID)
		if errors.Is(err, sql.ErrNoRows) {
			// В диалоге ещё нет сообщений, читать нечего.
			return nil
		}
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить последнее сообщение")
		}

		cursorColumn, counter := "seller_last_read_message_id", "seller_unread"
		readAtColumn := "seller_last_read_at"
		if readerIsBuyer {
			cursorColumn, counter = "buyer_last_read_message_id", "buyer_unread"
			readAtColumn = "buyer_last_read_at"
		}
		update := `
			UPDATE threads
			SET ` + cursorColumn + ` = $2, ` + readAtColumn + ` = NOW(),
				` + counter + ` = 0,
				updated_at = NOW()
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, update, threadID, last.ID); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить курсор прочтения")
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO message_reads (message_id, reader_id, read_at)
			SELECT m.id, $2, NOW()
			FROM messages m
			WHERE m.conversation_kind = $1 AND m.conversation_id = $3 AND m.sender_id <> $2
			ON CONFLICT (message_id, reader_id) DO NOTHING
		`, models.ConversationThread, readerID, threadID); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить квитанции прочтения")
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE messages
			SET status = $4, updated_at = NOW()
			WHERE conversation_kind = $1 AND conversation_id = $2 AND sender_id <> $3 AND status <> $4
		`, models.ConversationThread, threadID, readerID, models.MessageStatusSeen); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус сообщений")
		}
		return nil
	})
}

// MarkDelivered продвигает статус сообщения sent -> delivered. Условие в
// WHERE сохраняет монотонность: seen не откатывается.
func (r *MessageRepository) MarkDelivered(ctx context.Context, messageID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE messages SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, messageID, models.MessageStatusDelivered, models.MessageStatusSent); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус сообщения")
	}
	return nil
}
