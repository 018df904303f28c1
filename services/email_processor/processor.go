package email_processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
	"github.com/postmottak/mailroom/services/attachment_handler"
	"github.com/postmottak/mailroom/services/header_repair"
)

// EmailProcessor turns a fetched raw message into persisted rows: the email
// itself, its attachments, and the broker event.
type EmailProcessor struct {
	log            logger.Logger
	emailRepo      interfaces.EmailRepository
	attachmentRepo interfaces.EmailAttachmentRepository
	attachments    *attachment_handler.AttachmentHandler
	publisher      interfaces.EventPublisher
	myEmail        string
}

func NewEmailProcessor(
	log logger.Logger,
	emailRepo interfaces.EmailRepository,
	attachmentRepo interfaces.EmailAttachmentRepository,
	publisher interfaces.EventPublisher,
	myEmail string,
) *EmailProcessor {
	return &EmailProcessor{
		log:            log,
		emailRepo:      emailRepo,
		attachmentRepo: attachmentRepo,
		attachments:    attachment_handler.NewAttachmentHandler(),
		publisher:      publisher,
		myEmail:        strings.ToLower(myEmail),
	}
}

// Process decodes and stores one message under the given thread. Duplicate
// Message-IDs collapse onto the existing row.
func (p *EmailProcessor) Process(ctx context.Context, msg *models.RawMessage, threadID string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailProcessor.Process")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagUID, msg.UID)
	span.SetTag(tracing.SpanTagThreadID, threadID)

	email := p.buildEmail(msg, threadID)

	body, err := ExtractBody(msg.Raw)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	email.BodyText = body.Text
	email.BodyHTMLText = body.HTMLText

	attachments := p.attachments.Extract(msg.Structure)
	email.HasAttachment = len(attachments) > 0

	emailID, err := p.emailRepo.Create(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	email.ID = emailID

	for _, att := range attachments {
		record := &models.EmailAttachment{
			EmailID:   emailID,
			Name:      att.Name,
			Filename:  att.Filename,
			FileType:  att.FileType,
			PartIndex: att.PartIndex,
			MIMEType:  att.MIMEType,
			Encoding:  att.Encoding,
			Size:      att.Size,
		}
		if _, err := p.attachmentRepo.Create(ctx, record); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	if p.publisher != nil {
		if err := p.publisher.PublishEmailReceived(ctx, emailID, email); err != nil {
			// Event delivery is best effort; the email row is the source of
			// truth and a failed publish must not fail the message.
			tracing.TraceErr(span, err)
			p.log.Warnf("failed to publish event for email %s: %v", emailID, err)
		}
	}

	return email, nil
}

func (p *EmailProcessor) buildEmail(msg *models.RawMessage, threadID string) *models.Email {
	direction := enum.EmailInbound
	if len(msg.From) > 0 && strings.ToLower(msg.From[0].Address) == p.myEmail {
		direction = enum.EmailOutbound
	}

	subject, err := header_repair.DecodeHeaderText(msg.Subject)
	if err != nil {
		// The sentinel text is stored so the failure stays visible and
		// searchable next to the message.
		subject = err.Error()
	}

	email := &models.Email{
		ThreadID:   threadID,
		Folder:     msg.Folder,
		ImapUID:    msg.UID,
		Direction:  direction,
		MessageID:  msg.MessageID,
		Subject:    subject,
		SentAt:     msg.Date,
		Identifier: BuildIdentifier(msg.Date, direction),
		RawHeaders: headersToMap(msg.Header),
	}

	if len(msg.From) > 0 {
		email.FromAddress = strings.ToLower(msg.From[0].Address)
		email.FromName = header_repair.DecodeHeaderTextLenient(msg.From[0].Name)
	}
	for _, addr := range msg.To {
		email.ToAddresses = append(email.ToAddresses, strings.ToLower(addr.Address))
	}
	for _, addr := range msg.Cc {
		email.CcAddresses = append(email.CcAddresses, strings.ToLower(addr.Address))
	}
	if len(msg.ReplyTo) > 0 {
		email.ReplyTo = strings.ToLower(msg.ReplyTo[0].Address)
	}
	if len(msg.Sender) > 0 {
		email.SenderAddr = strings.ToLower(msg.Sender[0].Address)
	}

	return email
}

// BuildIdentifier renders the stable per-message label, for example
// "2021-09-29_143000 - IN". Messages without a parsable date use the zero
// time so they sort first and stand out.
func BuildIdentifier(sentAt *time.Time, direction enum.EmailDirection) string {
	t := time.Time{}
	if sentAt != nil {
		t = *sentAt
	}
	return fmt.Sprintf("%s - %s", t.Format("2006-01-02_150405"), direction.Short())
}

func headersToMap(header map[string][]string) models.JSONMap {
	if header == nil {
		return nil
	}
	m := make(models.JSONMap, len(header))
	for name, values := range header {
		if len(values) == 1 {
			m[name] = values[0]
		} else {
			m[name] = values
		}
	}
	return m
}
