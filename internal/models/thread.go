package models

import (
	"time"

	"github.com/google/uuid"
)

// Thread описывает диалог покупателя и продавца по конкретному объявлению.
// Тройка (listing_id, buyer_id, seller_id) уникальна и неизменяема после
// создания. Счётчики непрочитанных и указатель последнего сообщения
// обновляются только атомарными UPDATE по id диалога.
type Thread struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ListingID uuid.UUID `db:"listing_id" json:"listing_id"`
	BuyerID   uuid.UUID `db:"buyer_id" json:"buyer_id"`
	SellerID  uuid.UUID `db:"seller_id" json:"seller_id"`

	// Блокировка одностороння и терминальна: однажды установленный
	// blocked_by не снимается.
	BlockedBy *uuid.UUID `db:"blocked_by" json:"blocked_by,omitempty"`
	BlockedAt *time.Time `db:"blocked_at" json:"blocked_at,omitempty"`

	// Курсоры прочтения участников.
	BuyerLastReadMessageID  *uuid.UUID `db:"buyer_last_read_message_id" json:"buyer_last_read_message_id,omitempty"`
	BuyerLastReadAt         *time.Time `db:"buyer_last_read_at" json:"buyer_last_read_at,omitempty"`
	SellerLastReadMessageID *uuid.UUID `db:"seller_last_read_message_id" json:"seller_last_read_message_id,omitempty"`
	SellerLastReadAt        *time.Time `db:"seller_last_read_at" json:"seller_last_read_at,omitempty"`

	BuyerUnread  int `db:"buyer_unread" json:"buyer_unread"`
	SellerUnread int `db:"seller_unread" json:"seller_unread"`

	LastMessageID *uuid.UUID `db:"last_message_id" json:"last_message_id,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsParticipant проверяет, участвует ли пользователь в диалоге.
func (t *Thread) IsParticipant(userID uuid.UUID) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

// Counterpart возвращает id собеседника участника.
func (t *Thread) Counterpart(userID uuid.UUID) uuid.UUID {
	if t.BuyerID == userID {
		return t.SellerID
	}
	return t.BuyerID
}

// IsBlocked сообщает, установлена ли блокировка диалога.
func (t *Thread) IsBlocked() bool {
	return t.BlockedBy != nil
}

// IsBlockedAgainst проверяет, закрыт ли диалог для данного пользователя:
// после блокировки доступ сохраняет только тот, кто её установил.
func (t *Thread) IsBlockedAgainst(userID uuid.UUID) bool {
	return t.BlockedBy != nil && *t.BlockedBy != userID
}

// UnreadFor возвращает счётчик непрочитанных для участника.
func (t *Thread) UnreadFor(userID uuid.UUID) int {
	if t.BuyerID == userID {
		return t.BuyerUnread
	}
	return t.SellerUnread
}

// ThreadView — диалог с разрешёнными для отображения данными объявления
// и участников. Unread — счётчик непрочитанных со стороны запросившего.
type ThreadView struct {
	Thread
	ListingTitle string     `db:"listing_title" json:"listing_title"`
	ListingPrice float64    `db:"listing_price" json:"listing_price"`
	Buyer        PublicUser `json:"buyer"`
	Seller       PublicUser `json:"seller"`
	Unread       int        `db:"-" json:"unread"`
}
