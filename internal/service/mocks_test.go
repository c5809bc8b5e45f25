package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/marketplace-backend/internal/email"
	"github.com/ignatzorin/marketplace-backend/internal/models"
)

type mockThreadStore struct {
	mock.Mock
}

func (m *mockThreadStore) GetOrCreate(ctx context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Thread, bool, error) {
	args := m.Called(ctx, listingID, buyerID, sellerID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Thread), args.Bool(1), args.Error(2)
}

func (m *mockThreadStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Thread, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *mockThreadStore) ListForUser(ctx context.Context, userID uuid.UUID, role string) ([]models.ThreadView, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ThreadView), args.Error(1)
}

func (m *mockThreadStore) Block(ctx context.Context, threadID, actorID uuid.UUID) (bool, error) {
	args := m.Called(ctx, threadID, actorID)
	return args.Bool(0), args.Error(1)
}

type mockListingStore struct {
	mock.Mock
}

func (m *mockListingStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserDirectory) GetPublicByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PublicUser, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]models.PublicUser), args.Error(1)
}

type mockBlockStore struct {
	mock.Mock
}

func (m *mockBlockStore) Create(ctx context.Context, block *models.UserBlock) error {
	args := m.Called(ctx, block)
	return args.Error(0)
}

func (m *mockBlockStore) ExistsBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

type mockMessageStore struct {
	mock.Mock
}

func (m *mockMessageStore) CreateInThread(ctx context.Context, msg *models.Message, recipientIsBuyer bool) error {
	args := m.Called(ctx, msg, recipientIsBuyer)
	if args.Error(0) == nil {
		msg.ID = uuid.New()
		msg.Status = models.MessageStatusSent
	}
	return args.Error(0)
}

func (m *mockMessageStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *mockMessageStore) ListByThread(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, threadID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *mockMessageStore) LoadReads(ctx context.Context, messages []models.Message) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

func (m *mockMessageStore) MarkThreadRead(ctx context.Context, threadID, readerID uuid.UUID, readerIsBuyer bool) error {
	args := m.Called(ctx, threadID, readerID, readerIsBuyer)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyNewMessage(ctx context.Context, thread *models.Thread, msg *models.Message, recipientID uuid.UUID) {
	m.Called(ctx, thread, msg, recipientID)
}

type mockPresence struct {
	mock.Mock
}

func (m *mockPresence) IsOnline(userID uuid.UUID) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) PushToUser(userID uuid.UUID, event string, data any) (bool, error) {
	args := m.Called(userID, event, data)
	return args.Bool(0), args.Error(1)
}

func (m *mockPusher) PushToThread(threadID uuid.UUID, event string, data any) error {
	args := m.Called(threadID, event, data)
	return args.Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, n email.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type mockDeliveryMarker struct {
	mock.Mock
}

func (m *mockDeliveryMarker) MarkDelivered(ctx context.Context, messageID uuid.UUID) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type mockReportStore struct {
	mock.Mock
}

func (m *mockReportStore) Create(ctx context.Context, report *models.MessageReport) error {
	args := m.Called(ctx, report)
	if args.Error(0) == nil {
		report.ID = uuid.New()
		report.Status = models.ReportStatusPending
	}
	return args.Error(0)
}

func (m *mockReportStore) GetByID(ctx context.Context, id uuid.UUID) (*models.MessageReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageReport), args.Error(1)
}

func (m *mockReportStore) ListPending(ctx context.Context, limit, offset int) ([]models.MessageReport, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MessageReport), args.Error(1)
}

func (m *mockReportStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID) error {
	args := m.Called(ctx, id, status, reviewerID)
	return args.Error(0)
}
