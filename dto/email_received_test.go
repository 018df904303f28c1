package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/models"
)

func TestNewEmailReceived(t *testing.T) {
	sentAt := time.Date(2021, 9, 29, 14, 30, 0, 0, time.UTC)
	email := &models.Email{
		ID:          "email_1",
		ThreadID:    "thread_a",
		Folder:      "INBOX.Sak 12-2021",
		ImapUID:     7,
		Direction:   enum.EmailInbound,
		Subject:     "Klage på vedtak",
		FromAddress: "kari@example.com",
		SentAt:      &sentAt,
		Identifier:  "2021-09-29_143000 - IN",
	}

	ev := NewEmailReceived(email)

	require.Equal(t, "email_1", ev.EmailID)
	require.Equal(t, "thread_a", ev.ThreadID)
	require.Equal(t, "inbound", ev.Direction)
	require.Equal(t, "kari@example.com", ev.From)
	require.Equal(t, "example.com", ev.FromDomain)
	require.Equal(t, "2021-09-29_143000 - IN", ev.Identifier)
}

func TestNewEmailReceived_MalformedFrom(t *testing.T) {
	ev := NewEmailReceived(&models.Email{ID: "email_1", FromAddress: "not-an-address"})
	require.Equal(t, "", ev.FromDomain)
}
