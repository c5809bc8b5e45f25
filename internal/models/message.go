package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationKind помечает, какому виду переписки принадлежит сообщение.
// Сообщение принадлежит ровно одной переписке: либо обычному чату, либо
// диалогу маркетплейса.
type ConversationKind string

const (
	ConversationChat   ConversationKind = "chat"
	ConversationThread ConversationKind = "thread"
)

// Статусы доставки сообщения. Переходы строго вперёд:
// sent -> delivered -> seen.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusSeen      = "seen"
)

// Message описывает сообщение в переписке.
type Message struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	ConversationKind ConversationKind `db:"conversation_kind" json:"conversation_kind"`
	ConversationID   uuid.UUID        `db:"conversation_id" json:"conversation_id"`
	SenderID         uuid.UUID        `db:"sender_id" json:"sender_id"`
	Content          *string          `db:"content" json:"content,omitempty"`
	FileURL          *string          `db:"file_url" json:"file_url,omitempty"`
	FileType         *string          `db:"file_type" json:"file_type,omitempty"`
	Status           string           `db:"status" json:"status"`
	IsEdited         bool             `db:"is_edited" json:"is_edited"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`

	// Квитанции прочтения, загружаются отдельно.
	ReadBy []MessageRead `json:"read_by,omitempty"`
}

// MessageRead — квитанция прочтения. Пара (message_id, reader_id)
// уникальна; отправитель в квитанциях не появляется.
type MessageRead struct {
	MessageID uuid.UUID `db:"message_id" json:"message_id"`
	ReaderID  uuid.UUID `db:"reader_id" json:"reader_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}

// HasContent сообщает, осталось ли у сообщения содержимое после обрезки
// пробелов либо вложение.
func (m *Message) HasContent() bool {
	return (m.Content != nil && *m.Content != "") || m.FileURL != nil
}

// PreviewText возвращает текст для превью уведомления.
func (m *Message) PreviewText() string {
	if m.Content != nil && *m.Content != "" {
		return *m.Content
	}
	if m.FileURL != nil {
		return "[вложение]"
	}
	return ""
}
