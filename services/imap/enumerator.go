package imap

import (
	"context"
	"fmt"
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"

	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
	"github.com/postmottak/mailroom/services/email_processor"
	"github.com/postmottak/mailroom/services/header_repair"
)

// Enumerator walks a selected folder and materializes messages into their
// decoded-header in-memory form.
type Enumerator struct {
	log  logger.Logger
	conn *MailboxConnection
}

func NewEnumerator(log logger.Logger, conn *MailboxConnection) *Enumerator {
	return &Enumerator{log: log, conn: conn}
}

// ListMessages returns the UIDs to process, everything above the watermark.
// A zero watermark lists the whole folder.
func (e *Enumerator) ListMessages(ctx context.Context, lastUID uint32) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Enumerator.ListMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("last_uid", lastUID)

	if lastUID == 0 {
		return e.conn.SearchAll(ctx)
	}
	return e.conn.SearchSince(ctx, lastUID)
}

// BuildRawMessage fetches one message completely: envelope, structure,
// repaired headers and full source.
func (e *Enumerator) BuildRawMessage(ctx context.Context, uid uint32) (*models.RawMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Enumerator.BuildRawMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagUID, uid)

	meta, err := e.conn.FetchMeta(ctx, uid)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	raw, err := e.conn.FetchRaw(ctx, uid)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	msg := &models.RawMessage{
		UID:    uid,
		Folder: e.conn.SelectedFolder(),
		Raw:    raw,
		Header: parseHeaderBlock(raw),
	}

	if env := meta.Envelope; env != nil {
		msg.MessageID = strings.Trim(env.MessageId, "<>")
		msg.Subject = env.Subject
		if !env.Date.IsZero() {
			date := env.Date
			msg.Date = &date
		}
		msg.From = convertAddresses(env.From)
		msg.To = convertAddresses(env.To)
		msg.Cc = convertAddresses(env.Cc)
		msg.ReplyTo = convertAddresses(env.ReplyTo)
		msg.Sender = convertAddresses(env.Sender)
	}

	if meta.BodyStructure != nil {
		msg.Structure = convertStructure(meta.BodyStructure, "")
	}

	return msg, nil
}

func convertAddresses(addrs []*goimap.Address) []models.Address {
	var out []models.Address
	for _, a := range addrs {
		if a == nil || a.MailboxName == "" || a.HostName == "" {
			continue
		}
		out = append(out, models.Address{
			Name:    header_repair.DecodeHeaderTextLenient(a.PersonalName),
			Address: strings.ToLower(a.MailboxName + "@" + a.HostName),
		})
	}
	return out
}

// convertStructure maps the server's BODYSTRUCTURE into the internal part
// tree, assigning dotted section indices as it descends. A non-multipart
// root gets index "1"; children of a multipart get "1", "2", ... appended
// to the parent's prefix.
func convertStructure(bs *goimap.BodyStructure, prefix string) *models.BodyPart {
	part := &models.BodyPart{
		Index:             prefix,
		MIMEType:          strings.ToLower(bs.MIMEType),
		MIMESubType:       strings.ToLower(bs.MIMESubType),
		Encoding:          bs.Encoding,
		Params:            bs.Params,
		Disposition:       strings.ToLower(bs.Disposition),
		DispositionParams: bs.DispositionParams,
		ID:                bs.Id,
		Description:       bs.Description,
		Size:              bs.Size,
	}

	if len(bs.Parts) > 0 {
		for i, child := range bs.Parts {
			childPrefix := fmt.Sprintf("%d", i+1)
			if prefix != "" {
				childPrefix = prefix + "." + childPrefix
			}
			part.Parts = append(part.Parts, convertStructure(child, childPrefix))
		}
		return part
	}

	if part.Index == "" {
		part.Index = "1"
	}
	return part
}

// parseHeaderBlock extracts the repaired header lines of a raw message into
// a canonical-name map.
func parseHeaderBlock(raw string) map[string][]string {
	repaired := email_processor.RepairRawMessage(raw)
	headerEnd := strings.Index(repaired, "\r\n\r\n")
	if headerEnd >= 0 {
		repaired = repaired[:headerEnd]
	}

	header := make(map[string][]string)
	var lastName string
	for _, line := range strings.Split(repaired, "\r\n") {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastName != "" {
				values := header[lastName]
				values[len(values)-1] += " " + strings.TrimSpace(line)
			}
			continue
		}
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		name := canonicalHeaderName(line[:idx])
		header[name] = append(header[name], strings.TrimSpace(line[idx+1:]))
		lastName = name
	}
	return header
}

func canonicalHeaderName(name string) string {
	parts := strings.Split(strings.TrimSpace(name), "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}
