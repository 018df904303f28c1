package attachment_handler

import (
	"encoding/base64"
	"io"
	"mime/quotedprintable"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	mailroom_errors "github.com/postmottak/mailroom/errors"
	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
	"github.com/postmottak/mailroom/services/header_repair"
)

// Attachment is a classified attachment found in a message structure.
type Attachment struct {
	Name      string
	Filename  string
	FileType  enum.FileType
	PartIndex string
	MIMEType  string
	Encoding  string
	Size      uint32
}

type AttachmentHandler struct{}

func NewAttachmentHandler() *AttachmentHandler {
	return &AttachmentHandler{}
}

// Extract walks the body structure and returns every part that classifies
// as a supported attachment. Parts without any name are body content, never
// attachments, regardless of disposition.
func (h *AttachmentHandler) Extract(structure *models.BodyPart) []Attachment {
	if structure == nil {
		return nil
	}

	var attachments []Attachment
	structure.Walk(func(part *models.BodyPart) bool {
		if part.IsMultipart() {
			return true
		}
		if att, ok := h.classify(part); ok {
			attachments = append(attachments, att)
		}
		return true
	})
	return attachments
}

func (h *AttachmentHandler) classify(part *models.BodyPart) (Attachment, bool) {
	filename, hasFilename := header_repair.ParamValue(part.DispositionParams, "filename")
	name, hasName := header_repair.ParamValue(part.Params, "name")

	if !hasFilename && !hasName {
		return Attachment{}, false
	}

	name = header_repair.DecodeHeaderTextLenient(name)
	filename = header_repair.DecodeHeaderTextLenient(filename)

	name, filename = applySpecialCases(name, filename)

	if name == "" {
		name = filename
	}
	if filename == "" {
		filename = name
	}

	fileType, ok := DetermineFileType(name)
	if !ok {
		fileType, ok = DetermineFileType(filename)
	}
	if !ok {
		return Attachment{}, false
	}

	return Attachment{
		Name:      name,
		Filename:  filename,
		FileType:  fileType,
		PartIndex: part.Index,
		MIMEType:  strings.ToLower(part.MIMEType + "/" + part.MIMESubType),
		Encoding:  part.Encoding,
		Size:      part.Size,
	}, true
}

// DecodeContent decodes a fetched attachment body according to its
// Content-Transfer-Encoding. Unrecognized encodings return
// ErrUnsupportedEncoding; the caller records the failure and moves on to
// sibling parts.
func (h *AttachmentHandler) DecodeContent(raw []byte, encoding string) ([]byte, error) {
	span := opentracing.StartSpan("AttachmentHandler.DecodeContent")
	defer span.Finish()

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		cleaned := strings.Map(func(r rune) rune {
			if r == '\r' || r == '\n' || r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
		}
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrap(err, "decoding base64 attachment")
		}
		return decoded, nil
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(string(raw))))
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrap(err, "decoding quoted-printable attachment")
		}
		return decoded, nil
	default:
		err := errors.Wrapf(mailroom_errors.ErrUnsupportedEncoding, "encoding %q", encoding)
		tracing.TraceErr(span, err)
		return nil, err
	}
}
