package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/utils"
)

// ProcessingError records a message the sync could not route or decode. The
// message stays in its source folder; an operator resolves the row, which may
// create a ThreadMapping so the next run routes it.
type ProcessingError struct {
	ID   string                   `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Kind enum.ProcessingErrorKind `gorm:"column:kind;type:varchar(50);index;not null" json:"kind"`

	Folder  string `gorm:"column:folder;type:varchar(255);index" json:"folder"`
	ImapUID uint32 `gorm:"column:imap_uid" json:"imapUid"`
	Subject string `gorm:"column:subject;type:varchar(1000)" json:"subject"`
	Detail  string `gorm:"column:detail;type:text" json:"detail"`

	// Addresses are the participant addresses seen on the message, so an
	// operator can decide which thread should own this sender.
	Addresses pq.StringArray `gorm:"column:addresses;type:text[]" json:"addresses"`

	// CandidateThreadIDs is set for ambiguous routing: every thread whose
	// participant set overlapped the message.
	CandidateThreadIDs pq.StringArray `gorm:"column:candidate_thread_ids;type:text[]" json:"candidateThreadIds"`

	Resolved         bool       `gorm:"column:resolved;default:false;index" json:"resolved"`
	ResolvedAt       *time.Time `gorm:"column:resolved_at;type:timestamp" json:"resolvedAt"`
	ResolvedThreadID string     `gorm:"column:resolved_thread_id;type:varchar(50)" json:"resolvedThreadId"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (ProcessingError) TableName() string {
	return "processing_errors"
}

func (p *ProcessingError) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.GenerateNanoIDWithPrefix("perr", 24)
	}
	return nil
}
