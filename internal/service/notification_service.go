package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/email"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// PreviewMaxLen ограничивает длину превью сообщения в отложенном
// email-уведомлении (в рунах).
const PreviewMaxLen = 100

// EventNewMessage — имя события о новом сообщении в диалоге.
const EventNewMessage = "marketplace:new_message"

// PresenceRegistry отвечает на вопрос, доступен ли получатель прямо
// сейчас. Единственный источник истины о присутствии.
type PresenceRegistry interface {
	IsOnline(userID uuid.UUID) bool
}

// RealtimePusher доставляет структурированные события по живым
// соединениям: адресно пользователю и в комнату диалога.
type RealtimePusher interface {
	PushToUser(userID uuid.UUID, event string, data any) (bool, error)
	PushToThread(threadID uuid.UUID, event string, data any) error
}

// DeliveryMarker продвигает статус сообщения после успешной доставки.
type DeliveryMarker interface {
	MarkDelivered(ctx context.Context, messageID uuid.UUID) error
}

// NotificationService выбирает канал доставки уведомления о новом
// сообщении: живой push при присутствии получателя либо отложенное
// письмо. Ровно один канал на отправку. Все ошибки здесь только
// логируются: сервис вызывается из асинхронного хвоста и до
// отправителя не доносит ничего.
type NotificationService struct {
	presence PresenceRegistry
	pusher   RealtimePusher
	mailer   email.Mailer
	listings ListingStore
	users    UserDirectory
	delivery DeliveryMarker
}

// NewNotificationService создаёт диспетчер уведомлений.
func NewNotificationService(presence PresenceRegistry, pusher RealtimePusher, mailer email.Mailer, listings ListingStore, users UserDirectory, delivery DeliveryMarker) *NotificationService {
	return &NotificationService{
		presence: presence,
		pusher:   pusher,
		mailer:   mailer,
		listings: listings,
		users:    users,
		delivery: delivery,
	}
}

// NotifyNewMessage доставляет уведомление получателю. Недостающие данные
// для составления уведомления — тихая деградация с warn-логом, не повод
// для ретрая.
func (s *NotificationService) NotifyNewMessage(ctx context.Context, thread *models.Thread, msg *models.Message, recipientID uuid.UUID) {
	listing, err := s.listings.GetByID(ctx, thread.ListingID)
	if err != nil {
		s.degrade(thread.ID, "объявление недоступно", err)
		return
	}

	if s.presence.IsOnline(recipientID) {
		s.pushLive(ctx, thread, msg, recipientID, listing)
		return
	}
	s.sendDeferred(ctx, thread, msg, recipientID, listing)
}

func (s *NotificationService) pushLive(ctx context.Context, thread *models.Thread, msg *models.Message, recipientID uuid.UUID, listing *models.Listing) {
	payload := map[string]any{
		"thread_id":     thread.ID,
		"listing_title": listing.Title,
		"message":       msg,
	}

	delivered, err := s.pusher.PushToUser(recipientID, EventNewMessage, payload)
	if err != nil {
		s.warn(thread.ID, "не удалось отправить push", err)
		return
	}

	// Дублируем в комнату диалога: получатель может держать диалог
	// открытым в нескольких вкладках.
	if err := s.pusher.PushToThread(thread.ID, EventNewMessage, payload); err != nil {
		s.warn(thread.ID, "не удалось отправить push в комнату", err)
	}

	if delivered && s.delivery != nil {
		if err := s.delivery.MarkDelivered(ctx, msg.ID); err != nil {
			s.warn(thread.ID, "не удалось отметить доставку", err)
		}
	}
}

func (s *NotificationService) sendDeferred(ctx context.Context, thread *models.Thread, msg *models.Message, recipientID uuid.UUID, listing *models.Listing) {
	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		s.degrade(thread.ID, "получатель недоступен", err)
		return
	}

	sender, err := s.users.GetByID(ctx, msg.SenderID)
	if err != nil {
		s.degrade(thread.ID, "отправитель недоступен", err)
		return
	}

	notification := email.Notification{
		To:           recipient.Email,
		ToName:       recipient.DisplayName,
		FromName:     sender.DisplayName,
		ListingTitle: listing.Title,
		Preview:      TruncatePreview(msg.PreviewText(), PreviewMaxLen),
		ThreadID:     thread.ID.String(),
		ListingID:    listing.ID.String(),
	}

	if err := s.mailer.Send(ctx, notification); err != nil {
		// Best-effort: ошибка доставки письма не ретраится и до
		// отправителя не доходит.
		s.warn(thread.ID, "не удалось отправить письмо", err)
	}
}

func (s *NotificationService) degrade(threadID uuid.UUID, reason string, err error) {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"thread_id": threadID,
			"error":     err.Error(),
		}).Warn("notification service: уведомление пропущено: " + reason)
	}
}

func (s *NotificationService) warn(threadID uuid.UUID, reason string, err error) {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"thread_id": threadID,
			"error":     err.Error(),
		}).Warn("notification service: " + reason)
	}
}

// TruncatePreview обрезает превью до max рун с многоточием.
func TruncatePreview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
