package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/utils"
)

// Email is the persisted, fully decoded representation of one message in a
// thread folder. Body fields are always valid UTF-8; the undecoded original
// stays in the raw archive keyed by folder and IMAP UID.
type Email struct {
	ID       string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	ThreadID string `gorm:"column:thread_id;type:varchar(50);index;not null" json:"threadId"`
	Folder   string `gorm:"column:folder;type:varchar(255);index;not null" json:"folder"`
	ImapUID  uint32 `gorm:"column:imap_uid;index" json:"imapUid"`

	// Identifier is the human-readable "2006-01-02_150405 - IN" form derived
	// from the sent time and direction.
	Identifier string              `gorm:"column:identifier;type:varchar(50);index" json:"identifier"`
	Direction  enum.EmailDirection `gorm:"column:direction;type:varchar(20);index;not null" json:"direction"`
	MessageID  string              `gorm:"column:message_id;type:varchar(255);index" json:"messageId"`

	Subject      string         `gorm:"column:subject;type:varchar(1000)" json:"subject"`
	CleanSubject string         `gorm:"column:clean_subject;type:varchar(1000)" json:"cleanSubject"`
	FromAddress  string         `gorm:"column:from_address;type:varchar(255);index" json:"fromAddress"`
	FromName     string         `gorm:"column:from_name;type:varchar(255)" json:"fromName"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]" json:"toAddresses"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]" json:"ccAddresses"`
	ReplyTo      string         `gorm:"column:reply_to;type:varchar(255)" json:"replyTo"`
	SenderAddr   string         `gorm:"column:sender_address;type:varchar(255)" json:"senderAddress"`

	SentAt *time.Time `gorm:"column:sent_at;type:timestamp;index" json:"sentAt"`

	BodyText      string `gorm:"column:body_text;type:text" json:"bodyText"`
	BodyHTMLText  string `gorm:"column:body_html_text;type:text" json:"bodyHtmlText"`
	HasAttachment bool   `gorm:"column:has_attachment;default:false" json:"hasAttachment"`

	RawHeaders JSONMap `gorm:"column:raw_headers;type:jsonb" json:"rawHeaders"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	return nil
}

// AllParticipants returns every address on the message, lower-cased and
// deduplicated.
func (e *Email) AllParticipants() []string {
	participants := make([]string, 0, len(e.ToAddresses)+len(e.CcAddresses)+3)
	if e.FromAddress != "" {
		participants = append(participants, e.FromAddress)
	}
	participants = append(participants, e.ToAddresses...)
	participants = append(participants, e.CcAddresses...)
	if e.ReplyTo != "" {
		participants = append(participants, e.ReplyTo)
	}
	if e.SenderAddr != "" {
		participants = append(participants, e.SenderAddr)
	}
	return utils.UniqueEmails(participants)
}
