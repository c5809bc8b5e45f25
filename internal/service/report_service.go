package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/validation"
)

// ReportStore описывает зависимости сервиса от хранилища жалоб.
type ReportStore interface {
	Create(ctx context.Context, report *models.MessageReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MessageReport, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.MessageReport, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID) error
}

// MessageResolver разрешает сообщение для проверки жалобы.
type MessageResolver interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
}

// ReportService владеет созданием жалоб и переходами их статусной машины.
type ReportService struct {
	reports  ReportStore
	messages MessageResolver
}

// NewReportService создаёт сервис модерации.
func NewReportService(reports ReportStore, messages MessageResolver) *ReportService {
	return &ReportService{reports: reports, messages: messages}
}

// ReportMessage создаёт жалобу на сообщение диалога маркетплейса.
// Повторная жалоба того же пользователя на то же сообщение — конфликт,
// дубликат не создаётся. Сообщения обычных чатов здесь не обслуживаются.
func (s *ReportService) ReportMessage(ctx context.Context, reporterID, messageID uuid.UUID, reason string, description *string) (*models.MessageReport, error) {
	if !models.ValidReportReasons[reason] {
		return nil, apperror.New(apperror.ErrCodeValidation, "недопустимая причина жалобы")
	}
	if description != nil {
		if err := validation.ValidateLength("описание жалобы", *description, 0, validation.MaxReportDescriptionLength); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ConversationKind != models.ConversationThread {
		return nil, apperror.ErrMessageNotFound
	}

	report := &models.MessageReport{
		ReporterID:  reporterID,
		MessageID:   messageID,
		Reason:      reason,
		Description: description,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// ListPending возвращает очередь нерассмотренных жалоб для модератора.
func (s *ReportService) ListPending(ctx context.Context, limit, offset int) ([]models.MessageReport, error) {
	return s.reports.ListPending(ctx, limit, offset)
}

// ReviewReport фиксирует решение модератора. Статусная машина движется
// только вперёд: pending -> reviewed -> resolved | dismissed.
func (s *ReportService) ReviewReport(ctx context.Context, reportID, reviewerID uuid.UUID, status string) (*models.MessageReport, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if !report.CanTransitionTo(status) {
		return nil, apperror.New(apperror.ErrCodeValidation, "недопустимый переход статуса жалобы")
	}

	if err := s.reports.UpdateStatus(ctx, reportID, status, reviewerID); err != nil {
		return nil, err
	}
	return s.reports.GetByID(ctx, reportID)
}
