package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/goroutine"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/validation"
)

// MessageStore описывает зависимости сервиса от хранилища сообщений.
type MessageStore interface {
	CreateInThread(ctx context.Context, msg *models.Message, recipientIsBuyer bool) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	ListByThread(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]models.Message, error)
	LoadReads(ctx context.Context, messages []models.Message) error
	MarkThreadRead(ctx context.Context, threadID, readerID uuid.UUID, readerIsBuyer bool) error
}

// Notifier доставляет уведомление о новом сообщении. Вызывается из
// асинхронного хвоста отправки.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, thread *models.Thread, msg *models.Message, recipientID uuid.UUID)
}

// SendInput содержит данные отправляемого сообщения.
type SendInput struct {
	Content  string
	FileURL  *string
	FileType *string
}

// MessageService владеет отправкой, историей и прочтением сообщений
// диалогов маркетплейса.
type MessageService struct {
	threads  ThreadStore
	messages MessageStore
	blocks   BlockStore
	notifier Notifier
}

// NewMessageService создаёт сервис сообщений.
func NewMessageService(threads ThreadStore, messages MessageStore, blocks BlockStore, notifier Notifier) *MessageService {
	return &MessageService{threads: threads, messages: messages, blocks: blocks, notifier: notifier}
}

// SendMessage отправляет сообщение в диалог. Синхронная критическая
// секция — авторизация, создание сообщения и атомарное обновление
// счётчиков — завершается до возврата ответа. Доставка уведомления
// уходит в отсоединённый хвост и ответа не задерживает.
func (s *MessageService) SendMessage(ctx context.Context, threadID, senderID uuid.UUID, in SendInput) (*models.Message, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}

	if !thread.IsParticipant(senderID) {
		return nil, apperror.ErrForbidden
	}
	if thread.IsBlockedAgainst(senderID) {
		return nil, apperror.ErrBlocked
	}

	recipientID := thread.Counterpart(senderID)
	blocked, err := s.blocks.ExistsBetween(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperror.ErrBlocked
	}

	content := strings.TrimSpace(in.Content)
	msg := &models.Message{
		ConversationKind: models.ConversationThread,
		ConversationID:   threadID,
		SenderID:         senderID,
		FileURL:          in.FileURL,
		FileType:         in.FileType,
	}
	if content != "" {
		if err := validation.ValidateMessageContent(content); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		msg.Content = &content
	}
	if !msg.HasContent() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не может быть пустым")
	}

	if err := s.messages.CreateInThread(ctx, msg, thread.BuyerID == recipientID); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		// Хвост живёт на отсоединённом контексте: разрыв соединения
		// отправителя не отменяет доставку уведомления.
		sent := *msg
		goroutine.SafeGoWithContext(context.Background(), func(tailCtx context.Context) {
			s.notifier.NotifyNewMessage(tailCtx, thread, &sent, recipientID)
		})
	}

	return msg, nil
}

// GetThreadHistory возвращает страницу истории диалога в хронологическом
// порядке. Выборка из хранилища идёт от новых к старым, страница
// разворачивается перед возвратом.
func (s *MessageService) GetThreadHistory(ctx context.Context, threadID, userID uuid.UUID, page, limit int) ([]models.Message, error) {
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

	page, limit = validation.SanitizePagination(page, limit)
	offset := (page - 1) * limit

	messages, err := s.messages.ListByThread(ctx, threadID, limit, offset)
	if err != nil {
		return nil, err
	}

	if err := s.messages.LoadReads(ctx, messages); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkThreadRead отмечает диалог прочитанным: курсор читателя встаёт на
// последнее сообщение, счётчик непрочитанных обнуляется, сообщения
// собеседника получают квитанции и статус seen. Повторный вызов без
// новых сообщений ничего не меняет.
func (s *MessageService) MarkThreadRead(ctx context.Context, threadID, readerID uuid.UUID) error {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return err
	}

	if !thread.IsParticipant(readerID) {
		return apperror.ErrForbidden
	}
	if thread.IsBlockedAgainst(readerID) {
		return apperror.ErrBlocked
	}

	return s.messages.MarkThreadRead(ctx, threadID, readerID, thread.BuyerID == readerID)
}
