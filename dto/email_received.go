package dto

import (
	"time"

	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/utils"
)

// EmailReceived is published once per newly stored email.
type EmailReceived struct {
	EmailID    string     `json:"emailId"`
	ThreadID   string     `json:"threadId"`
	Folder     string     `json:"folder"`
	ImapUID    uint32     `json:"imapUid"`
	Direction  string     `json:"direction"`
	Subject    string     `json:"subject"`
	From       string     `json:"from"`
	FromDomain string     `json:"fromDomain"`
	SentAt     *time.Time `json:"sentAt"`
	Identifier string     `json:"identifier"`
}

func NewEmailReceived(email *models.Email) EmailReceived {
	return EmailReceived{
		EmailID:    email.ID,
		ThreadID:   email.ThreadID,
		Folder:     email.Folder,
		ImapUID:    email.ImapUID,
		Direction:  email.Direction.String(),
		Subject:    email.Subject,
		From:       email.FromAddress,
		FromDomain: utils.ExtractDomainFromEmail(email.FromAddress),
		SentAt:     email.SentAt,
		Identifier: email.Identifier,
	}
}
