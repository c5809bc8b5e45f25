package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/marketplace-backend/internal/email"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

type notificationFixture struct {
	svc      *NotificationService
	presence *mockPresence
	pusher   *mockPusher
	mailer   *mockMailer
	listings *mockListingStore
	users    *mockUserDirectory
	delivery *mockDeliveryMarker
}

func newNotificationFixture() *notificationFixture {
	f := &notificationFixture{
		presence: new(mockPresence),
		pusher:   new(mockPusher),
		mailer:   new(mockMailer),
		listings: new(mockListingStore),
		users:    new(mockUserDirectory),
		delivery: new(mockDeliveryMarker),
	}
	f.svc = NewNotificationService(f.presence, f.pusher, f.mailer, f.listings, f.users, f.delivery)
	return f
}

func testMessage(threadID, senderID uuid.UUID, content string) *models.Message {
	msg := &models.Message{
		ID:               uuid.New(),
		ConversationKind: models.ConversationThread,
		ConversationID:   threadID,
		SenderID:         senderID,
		Status:           models.MessageStatusSent,
	}
	if content != "" {
		msg.Content = &content
	}
	return msg
}

func TestNotificationService_NotifyNewMessage_OnlinePush(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, sellerID)
	listing := testListing(sellerID)
	thread.ListingID = listing.ID
	msg := testMessage(thread.ID, buyerID, "Ещё актуально?")

	f.listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	f.presence.On("IsOnline", sellerID).Return(true)
	f.pusher.On("PushToUser", sellerID, EventNewMessage, mock.Anything).Return(true, nil)
	f.pusher.On("PushToThread", thread.ID, EventNewMessage, mock.Anything).Return(nil)
	f.delivery.On("MarkDelivered", ctx, msg.ID).Return(nil)

	f.svc.NotifyNewMessage(ctx, thread, msg, sellerID)

	f.pusher.AssertExpectations(t)
	f.delivery.AssertExpectations(t)
	// Письмо при живой доставке не отправляется.
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestNotificationService_NotifyNewMessage_PushWithoutDelivery(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, sellerID)
	listing := testListing(sellerID)
	thread.ListingID = listing.ID
	msg := testMessage(thread.ID, buyerID, "привет")

	f.listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	f.presence.On("IsOnline", sellerID).Return(true)
	// Получатель значится онлайн, но ни одно соединение не приняло событие.
	f.pusher.On("PushToUser", sellerID, EventNewMessage, mock.Anything).Return(false, nil)
	f.pusher.On("PushToThread", thread.ID, EventNewMessage, mock.Anything).Return(nil)

	f.svc.NotifyNewMessage(ctx, thread, msg, sellerID)

	f.delivery.AssertNotCalled(t, "MarkDelivered", mock.Anything, mock.Anything)
}

func TestNotificationService_NotifyNewMessage_OfflineEmail(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, sellerID)
	listing := testListing(sellerID)
	thread.ListingID = listing.ID
	msg := testMessage(thread.ID, buyerID, "Готов забрать завтра вечером")

	recipient := &models.User{ID: sellerID, Email: "seller@example.com", DisplayName: "Продавец"}
	sender := &models.User{ID: buyerID, Email: "buyer@example.com", DisplayName: "Покупатель"}

	f.listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	f.presence.On("IsOnline", sellerID).Return(false)
	f.users.On("GetByID", ctx, sellerID).Return(recipient, nil)
	f.users.On("GetByID", ctx, buyerID).Return(sender, nil)

	var sent email.Notification
	f.mailer.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(email.Notification)
	}).Return(nil)

	f.svc.NotifyNewMessage(ctx, thread, msg, sellerID)

	f.mailer.AssertExpectations(t)
	assert.Equal(t, "seller@example.com", sent.To)
	assert.Equal(t, "Покупатель", sent.FromName)
	assert.Equal(t, listing.Title, sent.ListingTitle)
	assert.Equal(t, "Готов забрать завтра вечером", sent.Preview)
	// Push при офлайн-получателе не отправляется.
	f.pusher.AssertNotCalled(t, "PushToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_NotifyNewMessage_AttachmentPreview(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, sellerID)
	listing := testListing(sellerID)
	thread.ListingID = listing.ID

	fileURL := "uploads/photo.jpg"
	msg := testMessage(thread.ID, buyerID, "")
	msg.FileURL = &fileURL

	f.listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	f.presence.On("IsOnline", sellerID).Return(false)
	f.users.On("GetByID", ctx, sellerID).Return(&models.User{ID: sellerID, Email: "s@s.ru"}, nil)
	f.users.On("GetByID", ctx, buyerID).Return(&models.User{ID: buyerID, Email: "b@b.ru"}, nil)

	var sent email.Notification
	f.mailer.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(email.Notification)
	}).Return(nil)

	f.svc.NotifyNewMessage(ctx, thread, msg, sellerID)

	assert.Equal(t, "[вложение]", sent.Preview)
}

func TestNotificationService_NotifyNewMessage_ListingGone(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, sellerID)
	msg := testMessage(thread.ID, buyerID, "привет")

	f.listings.On("GetByID", ctx, thread.ListingID).Return(nil, apperror.ErrListingNotFound)

	// Тихая деградация: ни push, ни письмо.
	f.svc.NotifyNewMessage(ctx, thread, msg, sellerID)

	f.pusher.AssertNotCalled(t, "PushToUser", mock.Anything, mock.Anything, mock.Anything)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestTruncatePreview(t *testing.T) {
	assert.Equal(t, "короткое", TruncatePreview("короткое", PreviewMaxLen))

	long := strings.Repeat("с", 150)
	got := TruncatePreview(long, PreviewMaxLen)
	assert.Equal(t, PreviewMaxLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))

	exact := strings.Repeat("ы", PreviewMaxLen)
	assert.Equal(t, exact, TruncatePreview(exact, PreviewMaxLen))
}
