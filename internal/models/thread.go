package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/postmottak/mailroom/internal/utils"
)

// Thread represents one case/correspondence with an external entity. Each
// thread owns a dedicated per-thread IMAP folder and exactly one authorized
// address (MyEmail) used both for routing inbound mail and for direction
// inference.
type Thread struct {
	ID           string         `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	EntityID     string         `gorm:"column:entity_id;type:varchar(50);index" json:"entityId"`
	TitlePrefix  string         `gorm:"column:title_prefix;type:varchar(255)" json:"titlePrefix"`
	Title        string         `gorm:"column:title;type:varchar(500);not null" json:"title"`
	MyEmail      string         `gorm:"column:my_email;type:varchar(255);index;not null" json:"myEmail"`
	Archived     bool           `gorm:"column:archived;default:false;index" json:"archived"`
	Participants pq.StringArray `gorm:"column:participants;type:text[]" json:"participants"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Thread) TableName() string {
	return "threads"
}

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.GenerateNanoIDWithPrefix("thread", 16)
	}
	return nil
}

var folderTransliterations = strings.NewReplacer(
	"Æ", "AE", "Ø", "OE", "Å", "AA",
	"æ", "ae", "ø", "oe", "å", "aa",
	"/", "-",
)

// EmailFolder returns the per-thread IMAP folder path. Archived threads live
// under the Archive namespace. Folder titles are transliterated to ASCII so
// the server-visible hierarchy stays readable regardless of the server's
// mailbox-name charset handling.
func (t *Thread) EmailFolder() string {
	title := t.Title
	if t.TitlePrefix != "" {
		title = t.TitlePrefix + " - " + title
	}
	title = folderTransliterations.Replace(title)

	if t.Archived {
		return ArchiveFolderPrefix + title
	}
	return InboxFolderPrefix + title
}

const (
	InboxFolder         = "INBOX"
	InboxFolderPrefix   = "INBOX."
	ArchiveFolder       = "INBOX.Archive"
	ArchiveFolderPrefix = "INBOX.Archive."
)
