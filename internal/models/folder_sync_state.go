package models

import (
	"time"
)

// FolderSyncState is the per-folder watermark. LastUID is the highest UID
// that has been fully processed; LastCheckedAt records when the folder was
// last walked to completion. Both advance only after a full successful pass,
// so a crashed run re-examines the same messages on the next start.
type FolderSyncState struct {
	ID            uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FolderName    string     `gorm:"column:folder_name;type:varchar(255);uniqueIndex;not null" json:"folderName"`
	LastUID       uint32     `gorm:"column:last_uid;default:0" json:"lastUid"`
	LastCheckedAt *time.Time `gorm:"column:last_checked_at;type:timestamp" json:"lastCheckedAt"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (FolderSyncState) TableName() string {
	return "folder_sync_states"
}

// Stale reports whether the folder needs a re-check given the interval.
func (s *FolderSyncState) Stale(interval time.Duration, now time.Time) bool {
	if s.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*s.LastCheckedAt) >= interval
}
