package attachment_handler

import (
	"encoding/base64"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	mailroom_errors "github.com/postmottak/mailroom/errors"
	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/models"
)

func multipartMessage() *models.BodyPart {
	return &models.BodyPart{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*models.BodyPart{
			{
				Index:       "1",
				MIMEType:    "text",
				MIMESubType: "plain",
				Encoding:    "quoted-printable",
				Params:      map[string]string{"charset": "utf-8"},
				Size:        120,
			},
			{
				Index:             "2",
				MIMEType:          "application",
				MIMESubType:       "pdf",
				Encoding:          "base64",
				Params:            map[string]string{"name": "rapport.pdf"},
				Disposition:       "attachment",
				DispositionParams: map[string]string{"filename": "rapport.pdf"},
				Size:              4096,
			},
		},
	}
}

func TestExtract_FindsNamedAttachment(t *testing.T) {
	h := NewAttachmentHandler()

	attachments := h.Extract(multipartMessage())

	require.Len(t, attachments, 1)
	att := attachments[0]
	require.Equal(t, "rapport.pdf", att.Name)
	require.Equal(t, "rapport.pdf", att.Filename)
	require.Equal(t, enum.FileTypePDF, att.FileType)
	require.Equal(t, "2", att.PartIndex)
	require.Equal(t, "application/pdf", att.MIMEType)
	require.Equal(t, uint32(4096), att.Size)
}

func TestExtract_NamelessPartIsNeverAttachment(t *testing.T) {
	h := NewAttachmentHandler()
	structure := &models.BodyPart{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*models.BodyPart{
			{Index: "1", MIMEType: "text", MIMESubType: "plain", Encoding: "7bit"},
			{
				// Disposition says attachment but no part of the message
				// names it; inline body content by any other name.
				Index:       "2",
				MIMEType:    "application",
				MIMESubType: "octet-stream",
				Encoding:    "base64",
				Disposition: "attachment",
			},
		},
	}

	require.Empty(t, h.Extract(structure))
}

func TestExtract_UnsupportedExtensionSkipped(t *testing.T) {
	h := NewAttachmentHandler()
	structure := &models.BodyPart{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*models.BodyPart{
			{
				Index:             "1",
				MIMEType:          "application",
				MIMESubType:       "x-msdownload",
				Encoding:          "base64",
				DispositionParams: map[string]string{"filename": "setup.exe"},
				Disposition:       "attachment",
			},
		},
	}

	require.Empty(t, h.Extract(structure))
}

func TestExtract_EncodedWordFilename(t *testing.T) {
	h := NewAttachmentHandler()
	structure := &models.BodyPart{
		Index:             "1",
		MIMEType:          "application",
		MIMESubType:       "pdf",
		Encoding:          "base64",
		DispositionParams: map[string]string{"filename": "=?iso-8859-1?Q?h=F8ringsnotat.pdf?="},
		Disposition:       "attachment",
	}

	attachments := h.Extract(structure)

	require.Len(t, attachments, 1)
	require.Equal(t, "høringsnotat.pdf", attachments[0].Filename)
	require.Equal(t, "høringsnotat.pdf", attachments[0].Name)
}

func TestExtract_RFC2231Filename(t *testing.T) {
	h := NewAttachmentHandler()
	structure := &models.BodyPart{
		Index:       "1",
		MIMEType:    "application",
		MIMESubType: "pdf",
		Encoding:    "base64",
		DispositionParams: map[string]string{
			"filename*0*": "iso-8859-1''h%F8rings",
			"filename*1*": "notat.pdf",
		},
		Disposition: "attachment",
	}

	attachments := h.Extract(structure)

	require.Len(t, attachments, 1)
	require.Equal(t, "høringsnotat.pdf", attachments[0].Filename)
}

func TestExtract_SpecialCaseName(t *testing.T) {
	h := NewAttachmentHandler()
	structure := &models.BodyPart{
		Index:       "1",
		MIMEType:    "application",
		MIMESubType: "pdf",
		Encoding:    "base64",
		Params:      map[string]string{"name": "Stortingsvalg - Valgstyrets_møtebok_1806_2021-09-29.pdf"},
	}

	attachments := h.Extract(structure)

	require.Len(t, attachments, 1)
	require.Equal(t, "Stortingsvalg - Valgstyrets-møtebok-1806-2021.pdf", attachments[0].Name)
}

func TestExtract_NilStructure(t *testing.T) {
	require.Empty(t, NewAttachmentHandler().Extract(nil))
}

func TestDecodeContent_Base64(t *testing.T) {
	h := NewAttachmentHandler()
	payload := []byte("%PDF-1.4 fake content")
	encoded := base64.StdEncoding.EncodeToString(payload)
	// Transfer encoding folds base64 into short lines.
	wrapped := encoded[:10] + "\r\n" + encoded[10:]

	decoded, err := h.DecodeContent([]byte(wrapped), "base64")

	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

func TestDecodeContent_Base64MissingPadding(t *testing.T) {
	h := NewAttachmentHandler()
	encoded := base64.RawStdEncoding.EncodeToString([]byte("no padding here!"))

	decoded, err := h.DecodeContent([]byte(encoded), "BASE64")

	require.NoError(t, err)
	require.Equal(t, []byte("no padding here!"), decoded)
}

func TestDecodeContent_QuotedPrintable(t *testing.T) {
	h := NewAttachmentHandler()

	decoded, err := h.DecodeContent([]byte("m=C3=B8te=20referat"), "quoted-printable")

	require.NoError(t, err)
	require.Equal(t, "møte referat", string(decoded))
}

func TestDecodeContent_UnsupportedEncoding(t *testing.T) {
	h := NewAttachmentHandler()

	_, err := h.DecodeContent([]byte("payload"), "7")

	require.Error(t, err)
	require.True(t, errors.Is(err, mailroom_errors.ErrUnsupportedEncoding))
}
