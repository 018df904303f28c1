package header_repair

import (
	"fmt"
	"mime"
	"regexp"
	"strings"
)

// Some senders emit an encoded word whose closing "?=" is swallowed by the
// next header, producing lines like
//
//	Subject: =?iso-8859-1?Q?SV:_Klage_p=E5?= =?iso-8859-1?Q?_test?Thread-Topic: x
//
// where "Thread-Topic:" begins inside the unterminated word. The pattern
// finds an open encoded word followed directly by something shaped like a
// header name and a colon, closes the word, and pushes the header onto its
// own line. Header names are bounded at 31 characters, which keeps the match
// from running away inside ordinary Q-encoded text.
var truncatedEncodedWordRe = regexp.MustCompile(
	`(=\?[^?]+\?[BQbq]\?[^?\s]*)\?([A-Za-z][A-Za-z0-9-]{1,30}:)`,
)

// RepairEncodedWords closes unterminated encoded words in a raw header
// block. Safe on well-formed input: a properly closed word never matches.
func RepairEncodedWords(headerBlock string) string {
	return truncatedEncodedWordRe.ReplaceAllString(headerBlock, "${1}?=\r\n${2}")
}

var wordDecoder = &mime.WordDecoder{CharsetReader: NewCharsetReader}

// DecodeHeaderText decodes RFC 2047 encoded words in a header value,
// repairing truncated words first. When decoding still fails the raw value
// is returned alongside a sentinel-formatted error so callers can persist
// something searchable rather than dropping the message.
func DecodeHeaderText(value string) (string, error) {
	repaired := RepairEncodedWords(value)
	// Repair may have split the value onto a new line; only the first line
	// belongs to this header.
	if idx := strings.IndexAny(repaired, "\r\n"); idx >= 0 {
		repaired = repaired[:idx]
	}

	decoded, err := wordDecoder.DecodeHeader(repaired)
	if err != nil {
		return EnsureUTF8String(value), fmt.Errorf("Error getting subject - %v", err)
	}
	return EnsureUTF8String(decoded), nil
}

// DecodeHeaderTextLenient is DecodeHeaderText for callers that want the
// best-effort string and never an error.
func DecodeHeaderTextLenient(value string) string {
	decoded, _ := DecodeHeaderText(value)
	return decoded
}
