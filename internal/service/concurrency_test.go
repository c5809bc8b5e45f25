package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// Потокобезопасные in-memory хранилища, повторяющие семантику слоя
// repository: get-or-create сходится к одной строке, счётчики растут
// атомарным инкрементом, блокировка диалога — set-once. На них сервисы
// гоняются настоящими горутинами.

type memThreadStore struct {
	mu      sync.Mutex
	threads map[uuid.UUID]*models.Thread
	triples map[string]uuid.UUID
}

func newMemThreadStore() *memThreadStore {
	return &memThreadStore{
		threads: make(map[uuid.UUID]*models.Thread),
		triples: make(map[string]uuid.UUID),
	}
}

func tripleKey(listingID, buyerID, sellerID uuid.UUID) string {
	return listingID.String() + "/" + buyerID.String() + "/" + sellerID.String()
}

func (s *memThreadStore) GetOrCreate(_ context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Thread, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey(listingID, buyerID, sellerID)
	if id, ok := s.triples[key]; ok {
		existing := *s.threads[id]
		return &existing, false, nil
	}

	t := &models.Thread{
		ID:        uuid.New(),
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
		CreatedAt: time.Now(),
	}
	s.threads[t.ID] = t
	s.triples[key] = t.ID
	created := *t
	return &created, true, nil
}

func (s *memThreadStore) GetByID(_ context.Context, id uuid.UUID) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, apperror.ErrThreadNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *memThreadStore) ListForUser(_ context.Context, userID uuid.UUID, _ string) ([]models.ThreadView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var views []models.ThreadView
	for _, t := range s.threads {
		if t.IsParticipant(userID) {
			views = append(views, models.ThreadView{Thread: *t})
		}
	}
	return views, nil
}

func (s *memThreadStore) Block(_ context.Context, threadID, actorID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok || t.BlockedBy != nil {
		return false, nil
	}
	now := time.Now()
	t.BlockedBy = &actorID
	t.BlockedAt = &now
	return true, nil
}

func (s *memThreadStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// bumpUnread — аналог атомарного "counter = counter + 1" по id диалога.
func (s *memThreadStore) bumpUnread(threadID uuid.UUID, recipientIsBuyer bool, msgID uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.threads[threadID]
	if recipientIsBuyer {
		t.BuyerUnread++
	} else {
		t.SellerUnread++
	}
	t.LastMessageID = &msgID
	t.LastMessageAt = &at
}

func (s *memThreadStore) resetUnread(threadID uuid.UUID, readerIsBuyer bool, lastID uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.threads[threadID]
	cursor := lastID
	if readerIsBuyer {
		t.BuyerUnread = 0
		t.BuyerLastReadMessageID = &cursor
		t.BuyerLastReadAt = &at
	} else {
		t.SellerUnread = 0
		t.SellerLastReadMessageID = &cursor
		t.SellerLastReadAt = &at
	}
}

type memMessageStore struct {
	mu       sync.Mutex
	threads  *memThreadStore
	byThread map[uuid.UUID][]models.Message
	reads    map[uuid.UUID]map[uuid.UUID]time.Time
}

func newMemMessageStore(threads *memThreadStore) *memMessageStore {
	return &memMessageStore{
		threads:  threads,
		byThread: make(map[uuid.UUID][]models.Message),
		reads:    make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

func (s *memMessageStore) CreateInThread(_ context.Context, msg *models.Message, recipientIsBuyer bool) error {
	s.mu.Lock()
	msg.ID = uuid.New()
	msg.Status = models.MessageStatusSent
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt
	s.byThread[msg.ConversationID] = append(s.byThread[msg.ConversationID], *msg)
	s.mu.Unlock()

	s.threads.bumpUnread(msg.ConversationID, recipientIsBuyer, msg.ID, msg.CreatedAt)
	return nil
}

func (s *memMessageStore) GetByID(_ context.Context, id uuid.UUID) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msgs := range s.byThread {
		for _, m := range msgs {
			if m.ID == id {
				found := m
				return &found, nil
			}
		}
	}
	return nil, apperror.ErrMessageNotFound
}

func (s *memMessageStore) ListByThread(_ context.Context, threadID uuid.UUID, limit, offset int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.byThread[threadID]
	// От новых к старым, как делает SQL-выборка
	page := make([]models.Message, 0, limit)
	for i := len(msgs) - 1 - offset; i >= 0 && len(page) < limit; i-- {
		page = append(page, msgs[i])
	}
	return page, nil
}

func (s *memMessageStore) LoadReads(_ context.Context, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range messages {
		for readerID, at := range s.reads[messages[i].ID] {
			messages[i].ReadBy = append(messages[i].ReadBy, models.MessageRead{
				MessageID: messages[i].ID,
				ReaderID:  readerID,
				ReadAt:    at,
			})
		}
	}
	return nil
}

func (s *memMessageStore) MarkThreadRead(_ context.Context, threadID, readerID uuid.UUID, readerIsBuyer bool) error {
	now := time.Now()

	s.mu.Lock()
	msgs := s.byThread[threadID]
	if len(msgs) == 0 {
		s.mu.Unlock()
		return nil
	}
	// Квитанции получают только сообщения собеседника, повторная
	// вставка пары (message, reader) игнорируется
	for i := range msgs {
		m := &msgs[i]
		if m.SenderID == readerID {
			continue
		}
		if s.reads[m.ID] == nil {
			s.reads[m.ID] = make(map[uuid.UUID]time.Time)
		}
		if _, ok := s.reads[m.ID][readerID]; !ok {
			s.reads[m.ID][readerID] = now
		}
		m.Status = models.MessageStatusSeen
	}
	lastID := msgs[len(msgs)-1].ID
	s.mu.Unlock()

	s.threads.resetUnread(threadID, readerIsBuyer, lastID, now)
	return nil
}

// Справочники-заглушки без состояния.

type noBlocks struct{}

func (noBlocks) Create(context.Context, *models.UserBlock) error { return nil }

func (noBlocks) ExistsBetween(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

type staticListings struct {
	listing *models.Listing
}

func (s staticListings) GetByID(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	if s.listing != nil && s.listing.ID == id {
		return s.listing, nil
	}
	return nil, apperror.ErrListingNotFound
}

type staticUsers struct{}

func (staticUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id, IsActive: true}, nil
}

func (staticUsers) GetPublicByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PublicUser, error) {
	users := make(map[uuid.UUID]models.PublicUser, len(ids))
	for _, id := range ids {
		users[id] = models.PublicUser{ID: id}
	}
	return users, nil
}

func TestThreadService_GetOrCreateThread_ConcurrentCallsConverge(t *testing.T) {
	store := newMemThreadStore()
	sellerID := uuid.New()
	listing := testListing(sellerID)
	svc := NewThreadService(store, staticListings{listing: listing}, staticUsers{}, noBlocks{})

	buyerID := uuid.New()
	const workers = 32

	ids := make(chan uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := svc.GetOrCreateThread(context.Background(), listing.ID, buyerID)
			assert.NoError(t, err)
			ids <- view.ID
		}()
	}
	wg.Wait()
	close(ids)

	unique := make(map[uuid.UUID]struct{})
	for id := range ids {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 1)
	assert.Equal(t, 1, store.count())
}

func TestMessageService_SendMessage_ConcurrentSendsCountUnread(t *testing.T) {
	threadStore := newMemThreadStore()
	msgStore := newMemMessageStore(threadStore)

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread, _, err := threadStore.GetOrCreate(context.Background(), uuid.New(), buyerID, sellerID)
	require.NoError(t, err)

	svc := NewMessageService(threadStore, msgStore, noBlocks{}, nil)

	const sends = 25
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendMessage(context.Background(), thread.ID, buyerID, SendInput{Content: "привет"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	after, err := threadStore.GetByID(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, sends, after.UnreadFor(sellerID))
	assert.Equal(t, 0, after.UnreadFor(buyerID))
	assert.NotNil(t, after.LastMessageID)
}

func TestMessageService_MarkThreadRead_Idempotent(t *testing.T) {
	threadStore := newMemThreadStore()
	msgStore := newMemMessageStore(threadStore)

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread, _, err := threadStore.GetOrCreate(context.Background(), uuid.New(), buyerID, sellerID)
	require.NoError(t, err)

	svc := NewMessageService(threadStore, msgStore, noBlocks{}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(ctx, thread.ID, buyerID, SendInput{Content: "сообщение"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.MarkThreadRead(ctx, thread.ID, sellerID))

	first, err := threadStore.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.UnreadFor(sellerID))
	assert.NotNil(t, first.SellerLastReadMessageID)

	history, err := svc.GetThreadHistory(ctx, thread.ID, sellerID, 1, 50)
	require.NoError(t, err)
	require.Len(t, history, 3)
	firstReadAt := history[0].ReadBy[0].ReadAt

	// Повторный вызов без новых сообщений ничего не меняет
	require.NoError(t, svc.MarkThreadRead(ctx, thread.ID, sellerID))

	history, err = svc.GetThreadHistory(ctx, thread.ID, sellerID, 1, 50)
	require.NoError(t, err)
	for _, msg := range history {
		assert.Len(t, msg.ReadBy, 1)
		assert.Equal(t, models.MessageStatusSeen, msg.Status)
	}
	assert.Equal(t, firstReadAt, history[0].ReadBy[0].ReadAt)

	second, err := threadStore.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.UnreadFor(sellerID))
}

func TestMessageService_ReadReceipts_NeverContainSender(t *testing.T) {
	threadStore := newMemThreadStore()
	msgStore := newMemMessageStore(threadStore)

	buyerID := uuid.New()
	sellerID := uuid.New()
	thread, _, err := threadStore.GetOrCreate(context.Background(), uuid.New(), buyerID, sellerID)
	require.NoError(t, err)

	svc := NewMessageService(threadStore, msgStore, noBlocks{}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.SendMessage(ctx, thread.ID, buyerID, SendInput{Content: "вопрос"})
		require.NoError(t, err)
		_, err = svc.SendMessage(ctx, thread.ID, sellerID, SendInput{Content: "ответ"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.MarkThreadRead(ctx, thread.ID, buyerID))
	require.NoError(t, svc.MarkThreadRead(ctx, thread.ID, sellerID))

	history, err := svc.GetThreadHistory(ctx, thread.ID, buyerID, 1, 50)
	require.NoError(t, err)
	require.Len(t, history, 4)

	for _, msg := range history {
		require.Len(t, msg.ReadBy, 1)
		for _, r := range msg.ReadBy {
			assert.NotEqual(t, msg.SenderID, r.ReaderID)
			assert.Equal(t, msg.ID, r.MessageID)
		}
	}
}
