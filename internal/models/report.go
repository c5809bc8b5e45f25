package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReportStatusPending   = "pending"
	ReportStatusReviewed  = "reviewed"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

// Закрытый набор причин жалобы.
const (
	ReportReasonSpam          = "spam"
	ReportReasonHarassment    = "harassment"
	ReportReasonInappropriate = "inappropriate_content"
	ReportReasonScam          = "scam"
	ReportReasonFakeListing   = "fake_listing"
	ReportReasonOther         = "other"
)

// ValidReportReasons перечисляет допустимые причины жалобы.
var ValidReportReasons = map[string]bool{
	ReportReasonSpam:          true,
	ReportReasonHarassment:    true,
	ReportReasonInappropriate: true,
	ReportReasonScam:          true,
	ReportReasonFakeListing:   true,
	ReportReasonOther:         true,
}

// MessageReport — жалоба на сообщение. Пара (reporter_id, message_id)
// уникальна. Статусная машина движется только вперёд:
// pending -> reviewed -> resolved | dismissed.
type MessageReport struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ReporterID  uuid.UUID  `db:"reporter_id" json:"reporter_id"`
	MessageID   uuid.UUID  `db:"message_id" json:"message_id"`
	Reason      string     `db:"reason" json:"reason"`
	Description *string    `db:"description" json:"description,omitempty"`
	Status      string     `db:"status" json:"status"`
	ReviewedBy  *uuid.UUID `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// CanTransitionTo проверяет допустимость перехода статусной машины жалобы.
func (r *MessageReport) CanTransitionTo(status string) bool {
	switch r.Status {
	case ReportStatusPending:
		return status == ReportStatusReviewed
	case ReportStatusReviewed:
		return status == ReportStatusResolved || status == ReportStatusDismissed
	default:
		return false
	}
}
