package header_repair

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// charmapFor maps the charset labels seen in the wild to their decoders.
// Unlisted charsets fall through to detection.
func charmapFor(charset string) *charmap.Charmap {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1", "us-ascii", "ascii":
		return charmap.ISO8859_1
	case "iso-8859-15", "iso8859-15", "latin9":
		return charmap.ISO8859_15
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	case "windows-1251", "cp1251":
		return charmap.Windows1251
	case "iso-8859-2", "iso8859-2", "latin2":
		return charmap.ISO8859_2
	case "koi8-r":
		return charmap.KOI8R
	default:
		return nil
	}
}

func isUTF8Label(charset string) bool {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// looksLikeUTF8 reports whether data is valid UTF-8 and actually uses
// multi-byte sequences. Pure ASCII answers false so single-byte charsets
// keep their declared decoding.
func looksLikeUTF8(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, b := range data {
		if b >= 0x80 {
			return true
		}
	}
	return false
}

// DecodeCharset converts data declared as charset into UTF-8. Senders lie:
// a payload declared Latin-1 that is in fact well-formed UTF-8 is decoded
// as UTF-8 instead, which fixes the common mojibake where ø arrives as the
// two bytes 0xC3 0xB8 under an iso-8859-1 label.
func DecodeCharset(data []byte, charset string) ([]byte, error) {
	if isUTF8Label(charset) || charset == "" {
		return EnsureUTF8(data), nil
	}

	if cm := charmapFor(charset); cm != nil {
		if looksLikeUTF8(data) {
			return data, nil
		}
		decoded, err := cm.NewDecoder().Bytes(data)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", charset)
		}
		return decoded, nil
	}

	// Unknown label. Try detection before giving up.
	if detected := detectCharset(data); detected != nil {
		decoded, err := detected.NewDecoder().Bytes(data)
		if err == nil {
			return decoded, nil
		}
	}
	return EnsureUTF8(data), nil
}

// EnsureUTF8 returns data unchanged when it is already valid UTF-8, and
// otherwise reinterprets it as Latin-1. Latin-1 maps every byte to a rune,
// so the result is always valid UTF-8 and never loses bytes.
func EnsureUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// Cannot happen for Latin-1, but keep the fallback total.
		return []byte(strings.ToValidUTF8(string(data), "?"))
	}
	return decoded
}

// EnsureUTF8String is EnsureUTF8 over strings.
func EnsureUTF8String(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return string(EnsureUTF8([]byte(s)))
}

func detectCharset(data []byte) encoding.Encoding {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil {
		return nil
	}
	switch strings.ToLower(result.Charset) {
	case "utf-8":
		return encoding.Nop
	default:
		if cm := charmapFor(result.Charset); cm != nil {
			return cm
		}
	}
	return charmap.ISO8859_1
}

// NewCharsetReader is the CharsetReader hook handed to mime.WordDecoder and
// friends. It never errors on an unknown charset; it decodes best-effort.
func NewCharsetReader(charset string, input io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}
	decoded, err := DecodeCharset(data, charset)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(string(decoded)), nil
}
