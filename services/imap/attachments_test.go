package imap

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	mailroom_errors "github.com/postmottak/mailroom/errors"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/services/attachment_handler"
)

func TestFetchDecodedPart_Base64Attachment(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	fc.addMessage("INBOX.Sak 12-2021", 7, "U2UgdmVkbGVnZy4=")

	conn := NewMailboxConnection(testLogger(), fc, false)
	_, err := conn.Open(ctx, "INBOX.Sak 12-2021")
	require.NoError(t, err)

	s := &SyncService{log: testLogger(), attachments: attachment_handler.NewAttachmentHandler()}

	att := &models.EmailAttachment{ID: "attach_1", PartIndex: "2", Encoding: "base64"}
	content, err := s.fetchDecodedPart(ctx, conn, 7, att)
	require.NoError(t, err)
	require.Equal(t, []byte("Se vedlegg."), content)
}

func TestFetchDecodedPart_UnsupportedEncodingLeavesSiblingsFetchable(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	fc.addMessage("INBOX.Sak 12-2021", 7, "U2UgdmVkbGVnZy4=")

	conn := NewMailboxConnection(testLogger(), fc, false)
	_, err := conn.Open(ctx, "INBOX.Sak 12-2021")
	require.NoError(t, err)

	s := &SyncService{log: testLogger(), attachments: attachment_handler.NewAttachmentHandler()}

	pdf := &models.EmailAttachment{ID: "attach_1", PartIndex: "2", Encoding: "base64"}
	uuencoded := &models.EmailAttachment{ID: "attach_2", PartIndex: "3", Encoding: "x-uuencode"}

	_, err = s.fetchDecodedPart(ctx, conn, 7, uuencoded)
	require.Error(t, err)
	require.True(t, errors.Is(err, mailroom_errors.ErrUnsupportedEncoding))

	// The failed part must not poison the session; the sibling section on
	// the same message still fetches and decodes.
	content, err := s.fetchDecodedPart(ctx, conn, 7, pdf)
	require.NoError(t, err)
	require.Equal(t, []byte("Se vedlegg."), content)
}

func TestFetchDecodedPart_UnknownUID(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()

	conn := NewMailboxConnection(testLogger(), fc, false)
	_, err := conn.Open(ctx, "INBOX")
	require.NoError(t, err)

	s := &SyncService{log: testLogger(), attachments: attachment_handler.NewAttachmentHandler()}

	att := &models.EmailAttachment{ID: "attach_1", PartIndex: "2", Encoding: "base64"}
	_, err = s.fetchDecodedPart(ctx, conn, 99, att)
	require.Error(t, err)
}
