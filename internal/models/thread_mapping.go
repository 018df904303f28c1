package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/postmottak/mailroom/internal/utils"
)

// ThreadMapping pins an email address to a thread. Manual mappings are
// consulted before participant matching, so operators can resolve senders
// that would otherwise route nowhere or to several threads.
type ThreadMapping struct {
	ID           string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	EmailAddress string `gorm:"column:email_address;type:varchar(255);uniqueIndex;not null" json:"emailAddress"`
	ThreadID     string `gorm:"column:thread_id;type:varchar(50);index;not null" json:"threadId"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

func (ThreadMapping) TableName() string {
	return "thread_mappings"
}

func (m *ThreadMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("map", 24)
	}
	return nil
}
