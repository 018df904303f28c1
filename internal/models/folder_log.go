package models

import (
	"time"

	"github.com/postmottak/mailroom/internal/enum"
)

// FolderRunLog is one row per folder per sync run, used to audit what each
// pass did and to surface folders that keep failing.
type FolderRunLog struct {
	ID         uint64               `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RunID      string               `gorm:"column:run_id;type:varchar(50);index" json:"runId"`
	FolderName string               `gorm:"column:folder_name;type:varchar(255);index;not null" json:"folderName"`
	Status     enum.FolderRunStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	Message    string               `gorm:"column:message;type:text" json:"message"`

	MessagesSeen      int `gorm:"column:messages_seen;default:0" json:"messagesSeen"`
	MessagesProcessed int `gorm:"column:messages_processed;default:0" json:"messagesProcessed"`
	MessagesFailed    int `gorm:"column:messages_failed;default:0" json:"messagesFailed"`

	StartedAt  time.Time  `gorm:"column:started_at;type:timestamp" json:"startedAt"`
	FinishedAt *time.Time `gorm:"column:finished_at;type:timestamp" json:"finishedAt"`
}

func (FolderRunLog) TableName() string {
	return "folder_run_logs"
}
