package imap

import (
	"context"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	mailroom_errors "github.com/postmottak/mailroom/errors"
	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/tracing"
	"github.com/postmottak/mailroom/services/header_repair"
)

// MailboxConnection wraps an authenticated IMAP session with folder
// selection state. Every operation fails with ErrNoActiveSession after
// Close, so a stale handle can never act on the server.
type MailboxConnection struct {
	log    logger.Logger
	client interfaces.ImapClient

	selectedFolder string
	expungeOnClose bool
	closed         bool
}

func NewMailboxConnection(log logger.Logger, client interfaces.ImapClient, expungeOnClose bool) *MailboxConnection {
	return &MailboxConnection{
		log:            log,
		client:         client,
		expungeOnClose: expungeOnClose,
	}
}

// Open selects a folder. Read-write: moves and flag updates are part of the
// normal message lifecycle.
func (mc *MailboxConnection) Open(ctx context.Context, folder string) (*goimap.MailboxStatus, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxConnection.Open")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagFolder, folder)

	if mc.closed {
		return nil, mailroom_errors.ErrNoActiveSession
	}

	status, err := mc.client.Select(folder, false)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "selecting folder %s", folder)
	}
	mc.selectedFolder = folder
	span.SetTag("messages", status.Messages)
	return status, nil
}

// SearchAll returns the UIDs of every message in the selected folder,
// ascending.
func (mc *MailboxConnection) SearchAll(ctx context.Context) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxConnection.SearchAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := mc.requireSelected(); err != nil {
		return nil, err
	}

	criteria := goimap.NewSearchCriteria()
	uids, err := mc.client.UidSearch(criteria)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "searching folder")
	}
	span.SetTag("count", len(uids))
	return uids, nil
}

// SearchSince returns UIDs strictly above the watermark.
func (mc *MailboxConnection) SearchSince(ctx context.Context, lastUID uint32) ([]uint32, error) {
	uids, err := mc.SearchAll(ctx)
	if err != nil {
		return nil, err
	}
	fresh := uids[:0]
	for _, uid := range uids {
		if uid > lastUID {
			fresh = append(fresh, uid)
		}
	}
	return fresh, nil
}

// fetchOne runs a UID fetch for a single message and returns it, or nil
// when the server has nothing for that UID.
func (mc *MailboxConnection) fetchOne(uid uint32, items []goimap.FetchItem) (*goimap.Message, error) {
	seqset := new(goimap.SeqSet)
	seqset.AddNum(uid)

	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- mc.client.UidFetch(seqset, items, messages)
	}()

	var msg *goimap.Message
	for m := range messages {
		msg = m
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return msg, nil
}

// FetchRaw fetches the complete message source. The result is always valid
// UTF-8: already-valid bytes pass through, anything else is reinterpreted
// as Latin-1, which is total and loses nothing.
func (mc *MailboxConnection) FetchRaw(ctx context.Context, uid uint32) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxConnection.FetchRaw")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagUID, uid)

	if err := mc.requireSelected(); err != nil {
		return "", err
	}

	section := &goimap.BodySectionName{Peek: true}
	msg, err := mc.fetchOne(uid, []goimap.FetchItem{section.FetchItem()})
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrapf(err, "fetching message %d", uid)
	}
	if msg == nil {
		return "", errors.Errorf("no message with uid %d", uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return "", errors.Errorf("no body returned for uid %d", uid)
	}
	raw := make([]byte, 0, 4096)
	buf := make([]byte, 4096)
	for {
		n, rerr := body.Read(buf)
		raw = append(raw, buf[:n]...)
		if rerr != nil {
			break
		}
	}
	return string(header_repair.EnsureUTF8(raw)), nil
}

// FetchMeta fetches envelope, body structure and raw header block in one
// round trip.
func (mc *MailboxConnection) FetchMeta(ctx context.Context, uid uint32) (*goimap.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxConnection.FetchMeta")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagUID, uid)

	if err := mc.requireSelected(); err != nil {
		return nil, err
	}

	headerSection := &goimap.BodySectionName{
		BodyPartName: goimap.BodyPartName{Specifier: goimap.HeaderSpecifier},
		Peek:         true,
	}
	items := []goimap.FetchItem{
		goimap.FetchEnvelope,
		goimap.FetchBodyStructure,
		goimap.FetchRFC822Size,
		headerSection.FetchItem(),
	}
	msg, err := mc.fetchOne(uid, items)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "fetching metadata for %d", uid)
	}
	if msg == nil {
		return nil, errors.Errorf("no message with uid %d", uid)
	}
	return msg, nil
}

// FetchPart fetches one body section, for example "1.2", undecoded.
func (mc *MailboxConnection) FetchPart(ctx context.Context, uid uint32, partIndex string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxConnection.FetchPart")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagUID, uid)
	span.SetTag("part", partIndex)

	if err := mc.requireSelected(); err != nil {
		return nil, err
	}

	section, err := goimap.ParseBodySectionName(goimap.FetchItem("BODY.PEEK[" + partIndex + "]"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid part index %q", partIndex)
	}

	msg, err := mc.fetchOne(uid, []goimap.FetchItem{section.FetchItem()})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "fetching part %s of %d", partIndex, uid)
	}
	if msg == nil {
		return nil, errors.Errorf("no message with uid %d", uid)
	}
	body := msg.GetBody(section)
	if body == nil {
		return nil, errors.Errorf("no content for part %s of %d", partIndex, uid)
	}

	var content []byte
	buf := make([]byte, 4096)
	for {
		n, rerr := body.Read(buf)
		content = append(content, buf[:n]...)
		if rerr != nil {
			break
		}
	}
	return content, nil
}

// Move transfers a message to another folder. Servers with MOVE get the
// atomic command; others get COPY plus \Deleted plus EXPUNGE. A server
// reporting the message as already expunged counts as success.
func (mc *MailboxConnection) Move(ctx context.Context, uid uint32, dest string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxConnection.Move")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagUID, uid)
	span.SetTag("dest", dest)

	if err := mc.requireSelected(); err != nil {
		return err
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uid)

	supported, err := mc.client.Support("MOVE")
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "checking MOVE support")
	}

	if supported {
		if err := mc.client.UidMove(seqset, dest); err != nil {
			if IsExpungeIssued(err) {
				mc.log.Warnf("message %d already expunged during move to %s", uid, dest)
				return nil
			}
			tracing.TraceErr(span, err)
			return errors.Wrapf(err, "moving %d to %s", uid, dest)
		}
		return nil
	}

	if err := mc.client.UidCopy(seqset, dest); err != nil {
		if IsExpungeIssued(err) {
			mc.log.Warnf("message %d already expunged during copy to %s", uid, dest)
			return nil
		}
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "copying %d to %s", uid, dest)
	}

	item := goimap.FormatFlagsOp(goimap.AddFlags, true)
	flags := []interface{}{goimap.DeletedFlag}
	if err := mc.client.UidStore(seqset, item, flags, nil); err != nil {
		if IsExpungeIssued(err) {
			return nil
		}
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "flagging %d deleted", uid)
	}

	if err := mc.client.Expunge(nil); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "expunging after copy")
	}
	return nil
}

// Close logs the session out, expunging first when configured. The
// connection is unusable afterwards.
func (mc *MailboxConnection) Close(ctx context.Context) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "MailboxConnection.Close")
	defer span.Finish()

	if mc.closed {
		return nil
	}
	mc.closed = true

	if mc.expungeOnClose && mc.selectedFolder != "" {
		if err := mc.client.Expunge(nil); err != nil {
			mc.log.Warnf("expunge on close failed: %v", err)
		}
	}
	mc.selectedFolder = ""

	done := make(chan error, 1)
	go func() {
		done <- mc.client.Logout()
	}()
	select {
	case err := <-done:
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	case <-time.After(5 * time.Second):
		mc.log.Warnf("logout timed out")
	}
	return nil
}

// Client exposes the underlying session for folder management.
func (mc *MailboxConnection) Client() interfaces.ImapClient {
	if mc.closed {
		return nil
	}
	return mc.client
}

// SelectedFolder returns the currently selected folder, empty when none.
func (mc *MailboxConnection) SelectedFolder() string {
	return mc.selectedFolder
}

func (mc *MailboxConnection) requireSelected() error {
	if mc.closed {
		return mailroom_errors.ErrNoActiveSession
	}
	if mc.selectedFolder == "" {
		return mailroom_errors.ErrFolderNotSelected
	}
	return nil
}
