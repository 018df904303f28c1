package imap

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
)

// FetchAttachmentContent retrieves and decodes the bytes of one stored
// attachment. Content is never persisted; each call opens a fresh session
// and reads the recorded body section with PEEK, so flags stay untouched.
func (s *SyncService) FetchAttachmentContent(ctx context.Context, attachmentID string) (*models.EmailAttachment, []byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.FetchAttachmentContent")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("attachment.id", attachmentID)

	att, err := s.repos.EmailAttachmentRepository.GetByID(ctx, attachmentID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}
	if att == nil {
		return nil, nil, errors.Errorf("no attachment with id %s", attachmentID)
	}

	email, err := s.repos.EmailRepository.GetByID(ctx, att.EmailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}
	if email == nil {
		return nil, nil, errors.Errorf("no email with id %s", att.EmailID)
	}

	client, err := s.dialer.Connect(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, errors.Wrap(err, "connecting to mailbox")
	}
	conn := NewMailboxConnection(s.log, client, false)
	defer func() {
		if cerr := conn.Close(context.Background()); cerr != nil {
			s.log.Warnf("closing connection: %v", cerr)
		}
	}()

	if _, err := conn.Open(ctx, email.Folder); err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}

	content, err := s.fetchDecodedPart(ctx, conn, email.ImapUID, att)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}
	return att, content, nil
}

// fetchDecodedPart pulls one body section and decodes it with the recorded
// Content-Transfer-Encoding. A failure is scoped to the one part; sibling
// attachments on the same message stay fetchable over the same connection.
func (s *SyncService) fetchDecodedPart(ctx context.Context, conn *MailboxConnection, uid uint32, att *models.EmailAttachment) ([]byte, error) {
	raw, err := conn.FetchPart(ctx, uid, att.PartIndex)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching part %s of attachment %s", att.PartIndex, att.ID)
	}
	return s.attachments.DecodeContent(raw, att.Encoding)
}
