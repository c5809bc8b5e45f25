package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// ThreadStore описывает зависимости сервиса от хранилища диалогов.
type ThreadStore interface {
	GetOrCreate(ctx context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Thread, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Thread, error)
	ListForUser(ctx context.Context, userID uuid.UUID, role string) ([]models.ThreadView, error)
	Block(ctx context.Context, threadID, actorID uuid.UUID) (bool, error)
}

// ListingStore разрешает объявления для создания диалога и уведомлений.
type ListingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// UserDirectory разрешает отображаемые данные участников.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetPublicByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PublicUser, error)
}

// BlockStore описывает зависимости сервиса от справочника блокировок.
type BlockStore interface {
	Create(ctx context.Context, block *models.UserBlock) error
	ExistsBetween(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// ThreadService владеет жизненным циклом диалогов маркетплейса.
type ThreadService struct {
	threads  ThreadStore
	listings ListingStore
	users    UserDirectory
	blocks   BlockStore
}

// NewThreadService создаёт сервис диалогов.
func NewThreadService(threads ThreadStore, listings ListingStore, users UserDirectory, blocks BlockStore) *ThreadService {
	return &ThreadService{threads: threads, listings: listings, users: users, blocks: blocks}
}

// GetOrCreateThread находит либо создаёт диалог покупателя с продавцом
// объявления. Продавец определяется по объявлению. Идемпотентна:
// повторный вызов для той же тройки возвращает тот же диалог.
func (s *ThreadService) GetOrCreateThread(ctx context.Context, listingID, buyerID uuid.UUID) (*models.ThreadView, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	sellerID := listing.SellerID
	if buyerID == sellerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя начать диалог с самим собой")
	}

	blocked, err := s.blocks.ExistsBetween(ctx, buyerID, sellerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperror.ErrBlocked
	}

	thread, _, err := s.threads.GetOrCreate(ctx, listingID, buyerID, sellerID)
	if err != nil {
		return nil, err
	}

	if thread.IsBlockedAgainst(buyerID) {
		return nil, apperror.ErrBlocked
	}

	return s.resolveView(ctx, thread, listing, buyerID)
}

// GetThreadForUser возвращает диалог, проверяя участие и блокировку:
// после блокировки читать диалог может только её инициатор.
func (s *ThreadService) GetThreadForUser(ctx context.Context, threadID, userID uuid.UUID) (*models.Thread, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}

	if !thread.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	if thread.IsBlockedAgainst(userID) {
		return nil, apperror.ErrBlocked
	}
	return thread, nil
}

// ListThreads возвращает диалоги пользователя в выбранной роли,
// отсортированные по времени последнего сообщения.
func (s *ThreadService) ListThreads(ctx context.Context, userID uuid.UUID, role string) ([]models.ThreadView, error) {
	views, err := s.threads.ListForUser(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(views)*2)
	for _, v := range views {
		ids = append(ids, v.BuyerID, v.SellerID)
	}
	participants, err := s.users.GetPublicByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range views {
		views[i].Buyer = participants[views[i].BuyerID]
		views[i].Seller = participants[views[i].SellerID]
		views[i].Unread = views[i].UnreadFor(userID)
	}
	return views, nil
}

// BlockThread однократно блокирует диалог от имени участника и попутно
// сохраняет блокировку пары пользователей, чтобы новые диалоги между
// ними отклонялись и вне этого объявления. Повторная блокировка тем же
// участником — no-op, перехватить чужую блокировку нельзя.
func (s *ThreadService) BlockThread(ctx context.Context, threadID, actorID uuid.UUID) (*models.Thread, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}

	if !thread.IsParticipant(actorID) {
		return nil, apperror.ErrForbidden
	}

	if thread.IsBlocked() {
		if *thread.BlockedBy == actorID {
			return thread, nil
		}
		return nil, apperror.ErrBlocked
	}

	won, err := s.threads.Block(ctx, threadID, actorID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Проиграли гонку за set-once: смотрим, кто успел первым.
		current, err := s.threads.GetByID(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if current.IsBlocked() && *current.BlockedBy == actorID {
			return current, nil
		}
		return nil, apperror.ErrBlocked
	}

	block := &models.UserBlock{
		BlockerID: actorID,
		BlockedID: thread.Counterpart(actorID),
	}
	if err := s.blocks.Create(ctx, block); err != nil {
		return nil, err
	}

	return s.threads.GetByID(ctx, threadID)
}

// BlockUser сохраняет блокировку на уровне пользователей без привязки
// к диалогу.
func (s *ThreadService) BlockUser(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return apperror.New(apperror.ErrCodeValidation, "нельзя заблокировать самого себя")
	}

	if _, err := s.users.GetByID(ctx, blockedID); err != nil {
		return apperror.ErrUserNotFound
	}

	return s.blocks.Create(ctx, &models.UserBlock{
		BlockerID: blockerID,
		BlockedID: blockedID,
	})
}

// resolveView собирает отображаемое представление диалога для viewerID.
func (s *ThreadService) resolveView(ctx context.Context, thread *models.Thread, listing *models.Listing, viewerID uuid.UUID) (*models.ThreadView, error) {
	participants, err := s.users.GetPublicByIDs(ctx, []uuid.UUID{thread.BuyerID, thread.SellerID})
	if err != nil {
		return nil, err
	}

	view := &models.ThreadView{
		Thread:       *thread,
		ListingTitle: listing.Title,
		ListingPrice: listing.Price,
		Buyer:        participants[thread.BuyerID],
		Seller:       participants[thread.SellerID],
		Unread:       thread.UnreadFor(viewerID),
	}
	return view, nil
}
