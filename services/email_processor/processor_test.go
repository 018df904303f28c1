package email_processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/models"
)

type fakeEmailRepo struct {
	created []*models.Email
}

func (f *fakeEmailRepo) Create(ctx context.Context, email *models.Email) (string, error) {
	f.created = append(f.created, email)
	return "email_1", nil
}

func (f *fakeEmailRepo) GetByID(ctx context.Context, id string) (*models.Email, error) {
	return nil, nil
}

func (f *fakeEmailRepo) GetByMessageID(ctx context.Context, messageID string) (*models.Email, error) {
	return nil, nil
}

func (f *fakeEmailRepo) GetByUID(ctx context.Context, folder string, uid uint32) (*models.Email, error) {
	return nil, nil
}

func (f *fakeEmailRepo) ListByThread(ctx context.Context, threadID string) ([]*models.Email, error) {
	return nil, nil
}

type fakeAttachmentRepo struct {
	created []*models.EmailAttachment
}

func (f *fakeAttachmentRepo) Create(ctx context.Context, attachment *models.EmailAttachment) (string, error) {
	f.created = append(f.created, attachment)
	return "attach_1", nil
}

func (f *fakeAttachmentRepo) GetByID(ctx context.Context, id string) (*models.EmailAttachment, error) {
	for _, att := range f.created {
		if att.ID == id {
			return att, nil
		}
	}
	return nil, nil
}

func (f *fakeAttachmentRepo) ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error) {
	return f.created, nil
}

func newTestProcessor(emails *fakeEmailRepo, attachments *fakeAttachmentRepo) *EmailProcessor {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()
	return NewEmailProcessor(log, emails, attachments, nil, "postmottak@example.com")
}

func testRawMessage() *models.RawMessage {
	sentAt := time.Date(2021, 9, 29, 14, 30, 0, 0, time.UTC)
	return &models.RawMessage{
		UID:       101,
		Folder:    "INBOX.Sak 12-2021",
		MessageID: "abc123@example.com",
		Subject:   "=?iso-8859-1?Q?Klage_p=E5_vedtak?=",
		Date:      &sentAt,
		From:      []models.Address{{Name: "Kari Nordmann", Address: "kari@example.com"}},
		To:        []models.Address{{Address: "Postmottak@example.com"}},
		Raw: "From: kari@example.com\r\n" +
			"Subject: =?iso-8859-1?Q?Klage_p=E5_vedtak?=\r\n" +
			"Content-Type: multipart/mixed; boundary=\"b1\"\r\n" +
			"\r\n" +
			"--b1\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"Se vedlegg.\r\n" +
			"--b1\r\n" +
			"Content-Type: application/pdf; name=\"klage.pdf\"\r\n" +
			"Content-Transfer-Encoding: base64\r\n" +
			"Content-Disposition: attachment; filename=\"klage.pdf\"\r\n" +
			"\r\n" +
			"JVBERi0xLjQ=\r\n" +
			"--b1--\r\n",
		Structure: &models.BodyPart{
			MIMEType:    "multipart",
			MIMESubType: "mixed",
			Parts: []*models.BodyPart{
				{Index: "1", MIMEType: "text", MIMESubType: "plain", Encoding: "7bit"},
				{
					Index:             "2",
					MIMEType:          "application",
					MIMESubType:       "pdf",
					Encoding:          "base64",
					Params:            map[string]string{"name": "klage.pdf"},
					Disposition:       "attachment",
					DispositionParams: map[string]string{"filename": "klage.pdf"},
					Size:              10,
				},
			},
		},
	}
}

func TestProcess_StoresEmailWithAttachments(t *testing.T) {
	emails := &fakeEmailRepo{}
	attachments := &fakeAttachmentRepo{}
	p := newTestProcessor(emails, attachments)

	email, err := p.Process(context.Background(), testRawMessage(), "thread_a")

	require.NoError(t, err)
	require.Equal(t, "email_1", email.ID)
	require.Equal(t, "thread_a", email.ThreadID)
	require.Equal(t, "Klage på vedtak", email.Subject)
	require.Equal(t, enum.EmailInbound, email.Direction)
	require.Equal(t, "2021-09-29_143000 - IN", email.Identifier)
	require.Equal(t, "Se vedlegg.", email.BodyText)
	require.True(t, email.HasAttachment)
	require.Equal(t, "kari@example.com", email.FromAddress)
	require.Equal(t, []string{"postmottak@example.com"}, []string(email.ToAddresses))

	require.Len(t, attachments.created, 1)
	att := attachments.created[0]
	require.Equal(t, "email_1", att.EmailID)
	require.Equal(t, "klage.pdf", att.Filename)
	require.Equal(t, enum.FileTypePDF, att.FileType)
	require.Equal(t, "2", att.PartIndex)
	require.Equal(t, "base64", att.Encoding)
}

func TestProcess_OutboundDirection(t *testing.T) {
	emails := &fakeEmailRepo{}
	p := newTestProcessor(emails, &fakeAttachmentRepo{})

	msg := testRawMessage()
	msg.From = []models.Address{{Address: "postmottak@example.com"}}

	email, err := p.Process(context.Background(), msg, "thread_a")

	require.NoError(t, err)
	require.Equal(t, enum.EmailOutbound, email.Direction)
	require.Equal(t, "2021-09-29_143000 - OUT", email.Identifier)
}

func TestProcess_UndecodableSubjectStoredAsSentinel(t *testing.T) {
	emails := &fakeEmailRepo{}
	p := newTestProcessor(emails, &fakeAttachmentRepo{})

	msg := testRawMessage()
	msg.Subject = "=?utf-8?B?!!!notbase64!!!?="

	email, err := p.Process(context.Background(), msg, "thread_a")

	require.NoError(t, err)
	require.Contains(t, email.Subject, "Error getting subject - ")
}

func TestBuildIdentifier(t *testing.T) {
	sentAt := time.Date(2021, 9, 29, 14, 30, 0, 0, time.UTC)
	require.Equal(t, "2021-09-29_143000 - IN", BuildIdentifier(&sentAt, enum.EmailInbound))
	require.Equal(t, "2021-09-29_143000 - OUT", BuildIdentifier(&sentAt, enum.EmailOutbound))
	require.Equal(t, "0001-01-01_000000 - IN", BuildIdentifier(nil, enum.EmailInbound))
}
