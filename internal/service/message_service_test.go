package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

func newMessageServiceForTest(notifier Notifier) (*MessageService, *mockThreadStore, *mockMessageStore, *mockBlockStore) {
	threads := new(mockThreadStore)
	messages := new(mockMessageStore)
	blocks := new(mockBlockStore)
	return NewMessageService(threads, messages, blocks, notifier), threads, messages, blocks
}

func TestMessageService_SendMessage_Success(t *testing.T) {
	notifier := new(mockNotifier)
	svc, threads, messages, blocks := newMessageServiceForTest(notifier)
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, sellerID)

	notified := make(chan struct{})

	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)
	blocks.On("ExistsBetween", ctx, buyerID, sellerID).Return(false, nil)
	messages.On("CreateInThread", ctx, mock.Anything, false).Return(nil)
	notifier.On("NotifyNewMessage", mock.Anything, thread, mock.Anything, sellerID).
		Run(func(args mock.Arguments) { close(notified) }).Return()

	msg, err := svc.SendMessage(ctx, thread.ID, buyerID, SendInput{Content: "  Здравствуйте, велосипед ещё продаётся?  "})

	assert.NoError(t, err)
	assert.NotNil(t, msg.Content)
	assert.Equal(t, "Здравствуйте, велосипед ещё продаётся?", *msg.Content)
	assert.Equal(t, models.ConversationThread, msg.ConversationKind)
	assert.Equal(t, models.MessageStatusSent, msg.Status)

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("уведомление не было отправлено")
	}
}

func TestMessageService_SendMessage_EmptyContent(t *testing.T) {
	svc, threads, _, blocks := newMessageServiceForTest(nil)
	ctx := context.Background()

	buyerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, uuid.New())

	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)
	blocks.On("ExistsBetween", ctx, mock.Anything, mock.Anything).Return(false, nil)

	_, err := svc.SendMessage(ctx, thread.ID, buyerID, SendInput{Content: "   \n\t  "})

	assert.True(t, apperror.IsValidation(err))
}

func TestMessageService_SendMessage_AttachmentOnly(t *testing.T) {
	svc, threads, messages, blocks := newMessageServiceForTest(nil)
	ctx := context.Background()

	buyerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, uuid.New())
	fileURL := "uploads/photo.jpg"
	fileType := "image/jpeg"

	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)
	blocks.On("ExistsBetween", ctx, mock.Anything, mock.Anything).Return(false, nil)
	messages.On("CreateInThread", ctx, mock.Anything, false).Return(nil)

	msg, err := svc.SendMessage(ctx, thread.ID, buyerID, SendInput{FileURL: &fileURL, FileType: &fileType})

	assert.NoError(t, err)
	assert.Nil(t, msg.Content)
	assert.Equal(t, fileURL, *msg.FileURL)
}

func TestMessageService_SendMessage_NotParticipant(t *testing.T) {
	svc, threads, _, _ := newMessageServiceForTest(nil)
	ctx := context.Background()

	thread := testThread(uuid.New(), uuid.New(), uuid.New())
	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)

	_, err := svc.SendMessage(ctx, thread.ID, uuid.New(), SendInput{Content: "привет"})

	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestMessageService_SendMessage_BlockedThread(t *testing.T) {
	svc, threads, _, _ := newMessageServiceForTest(nil)
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, sellerID)
	thread.BlockedBy = &sellerID

	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)

	_, err := svc.SendMessage(ctx, thread.ID, buyerID, SendInput{Content: "привет"})

	assert.ErrorIs(t, err, apperror.ErrBlocked)
}

func TestMessageService_SendMessage_UserBlockPair(t *testing.T) {
	svc, threads, _, blocks := newMessageServiceForTest(nil)
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, sellerID)

	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)
	blocks.On("ExistsBetween", ctx, buyerID, sellerID).Return(true, nil)

	_, err := svc.SendMessage(ctx, thread.ID, buyerID, SendInput{Content: "привет"})

	assert.ErrorIs(t, err, apperror.ErrBlocked)
}

func TestMessageService_GetThreadHistory_ChronologicalOrder(t *testing.T) {
	svc, threads, messages, _ := newMessageServiceForTest(nil)
	ctx := context.Background()

	buyerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, uuid.New())

	first := "первое"
	second := "второе"
	third := "третье"
	// Хранилище отдаёт от новых к старым.
	stored := []models.Message{
		{ID: uuid.New(), Content: &third},
		{ID: uuid.New(), Content: &second},
		{ID: uuid.New(), Content: &first},
	}

	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)
	messages.On("ListByThread", ctx, thread.ID, 50, 0).Return(stored, nil)
	messages.On("LoadReads", ctx, mock.Anything).Return(nil)

	got, err := svc.GetThreadHistory(ctx, thread.ID, buyerID, 1, 50)

	assert.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "первое", *got[0].Content)
	assert.Equal(t, "третье", *got[2].Content)
}

func TestMessageService_GetThreadHistory_SanitizesPagination(t *testing.T) {
	svc, threads, messages, _ := newMessageServiceForTest(nil)
	ctx := context.Background()

	buyerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, uuid.New())

	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)
	// page=-5, limit=1000 приводятся к 1 и 100.
	messages.On("ListByThread", ctx, thread.ID, 100, 0).Return([]models.Message{}, nil)
	messages.On("LoadReads", ctx, mock.Anything).Return(nil)

	_, err := svc.GetThreadHistory(ctx, thread.ID, buyerID, -5, 1000)

	assert.NoError(t, err)
	messages.AssertExpectations(t)
}

func TestMessageService_MarkThreadRead_PassesReaderSide(t *testing.T) {
	svc, threads, messages, _ := newMessageServiceForTest(nil)
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread := testThread(uuid.New(), buyerID, sellerID)

	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)
	messages.On("MarkThreadRead", ctx, thread.ID, buyerID, true).Return(nil)

	err := svc.MarkThreadRead(ctx, thread.ID, buyerID)

	assert.NoError(t, err)
	messages.AssertExpectations(t)
}

func TestMessageService_MarkThreadRead_NotParticipant(t *testing.T) {
	svc, threads, _, _ := newMessageServiceForTest(nil)
	ctx := context.Background()

	thread := testThread(uuid.New(), uuid.New(), uuid.New())
	threads.On("GetByID", ctx, thread.ID).Return(thread, nil)

	err := svc.MarkThreadRead(ctx, thread.ID, uuid.New())

	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
