package models

import (
	"time"

	"github.com/google/uuid"
)

// UserBlock — односторонняя блокировка между пользователями. Пара
// (blocker_id, blocked_id) уникальна. Проверяется в обе стороны перед
// созданием диалога и перед каждой отправкой. Операции разблокировки
// в этой версии нет.
type UserBlock struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BlockerID uuid.UUID `db:"blocker_id" json:"blocker_id"`
	BlockedID uuid.UUID `db:"blocked_id" json:"blocked_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
