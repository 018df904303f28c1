package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/utils"
)

// EmailAttachment records one attachment discovered on an email. The bytes
// themselves are not stored here; PartIndex identifies the IMAP body section
// they can be fetched from.
type EmailAttachment struct {
	ID      string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	EmailID string `gorm:"column:email_id;type:varchar(50);index;not null" json:"emailId"`

	// Name is the decoded attachment name; Filename is the on-disk safe form.
	Name     string        `gorm:"column:name;type:varchar(500)" json:"name"`
	Filename string        `gorm:"column:filename;type:varchar(500)" json:"filename"`
	FileType enum.FileType `gorm:"column:file_type;type:varchar(20);index" json:"fileType"`

	// PartIndex is the dotted body section, e.g. "1.2"; Encoding is the
	// part's Content-Transfer-Encoding, needed to decode a later fetch.
	PartIndex string `gorm:"column:part_index;type:varchar(50)" json:"partIndex"`
	MIMEType  string `gorm:"column:mime_type;type:varchar(255)" json:"mimeType"`
	Encoding  string `gorm:"column:encoding;type:varchar(50)" json:"encoding"`
	Size      uint32 `gorm:"column:size" json:"size"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

func (EmailAttachment) TableName() string {
	return "email_attachments"
}

func (a *EmailAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("attach", 24)
	}
	return nil
}
