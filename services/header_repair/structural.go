package header_repair

import (
	"mime"
	"strings"
)

// Structural headers are machine-parsed downstream; a stray 8-bit byte in
// one of them breaks parsing outright, so those bytes become '?'. Address
// lists count as structural: wrapping a whole From value in an encoded
// word would swallow the angle-addr. Every other header is free text and
// gets a fresh encoded word instead, which preserves the characters.
var structuralHeaders = map[string]bool{
	"from":                      true,
	"to":                        true,
	"cc":                        true,
	"bcc":                       true,
	"reply-to":                  true,
	"sender":                    true,
	"message-id":                true,
	"in-reply-to":               true,
	"references":                true,
	"content-type":              true,
	"content-transfer-encoding": true,
	"content-disposition":       true,
	"content-id":                true,
	"mime-version":              true,
	"date":                      true,
	"received":                  true,
	"return-path":               true,
	"delivered-to":              true,
}

func IsStructuralHeader(name string) bool {
	return structuralHeaders[strings.ToLower(strings.TrimSpace(name))]
}

// SanitizeStructural replaces every byte outside printable ASCII with '?'.
// Tabs and spaces survive, folding does not reach here (callers pass
// unfolded values).
func SanitizeStructural(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c >= 0x7F || (c < 0x20 && c != '\t') {
			b.WriteByte('?')
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ReencodeFreeText takes a free-text header value that contains raw 8-bit
// bytes, decodes them by detection, and re-emits a well-formed Q-encoded
// word. Values that are already clean ASCII or valid encoded words pass
// through untouched.
func ReencodeFreeText(value string) string {
	if isPrintableASCII(value) {
		return value
	}
	decoded := string(EnsureUTF8([]byte(value)))
	return mime.QEncoding.Encode("utf-8", decoded)
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x7F || (s[i] < 0x20 && s[i] != '\t') {
			return false
		}
	}
	return true
}

// RepairHeaderBlock is the pre-pass applied to a raw header block before
// MIME parsing. It unterminated-word-repairs the whole block, then walks
// header lines: structural headers are sanitized to ASCII, free-text
// headers with raw 8-bit bytes are re-encoded. Folded continuation lines
// stay attached to their header.
func RepairHeaderBlock(block string) string {
	block = RepairEncodedWords(block)

	lines := splitHeaderLines(block)
	var out strings.Builder
	for _, line := range lines {
		name, value, ok := splitHeaderLine(line)
		if !ok {
			out.WriteString(line)
			out.WriteString("\r\n")
			continue
		}
		if IsStructuralHeader(name) {
			out.WriteString(name)
			out.WriteString(":")
			out.WriteString(sanitizeFolded(value))
		} else {
			out.WriteString(name)
			out.WriteString(":")
			out.WriteString(reencodeFolded(value))
		}
		out.WriteString("\r\n")
	}
	return out.String()
}

// splitHeaderLines splits a block into logical header lines, keeping folded
// continuations glued to the line they belong to.
func splitHeaderLines(block string) []string {
	raw := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
	var lines []string
	for _, line := range raw {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += "\n" + line
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func splitHeaderLine(line string) (name, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	name = line[:idx]
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7F {
			return "", "", false
		}
	}
	return name, line[idx+1:], true
}

// sanitizeFolded sanitizes each physical line of a possibly folded value
// separately so the folding itself is not replaced.
func sanitizeFolded(value string) string {
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		parts[i] = SanitizeStructural(part)
	}
	return strings.Join(parts, "\r\n")
}

// reencodeFolded re-encodes each physical line of a possibly folded value
// separately so folding whitespace survives.
func reencodeFolded(value string) string {
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		trimmed := strings.TrimLeft(part, " \t")
		indent := part[:len(part)-len(trimmed)]
		parts[i] = indent + ReencodeFreeText(trimmed)
	}
	return strings.Join(parts, "\r\n")
}
