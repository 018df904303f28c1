package email_processor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/postmottak/mailroom/services/header_repair"
)

// ExtractedBody holds the two body renditions stored per email: the plain
// text part as sent, and the HTML part flattened to text.
type ExtractedBody struct {
	Text     string
	HTMLText string
}

// ExtractBody parses a raw message and pulls out its body text. The header
// block goes through the repair pre-pass first so malformed encoded words
// and raw 8-bit headers never break the MIME parser.
func ExtractBody(raw string) (*ExtractedBody, error) {
	repaired := RepairRawMessage(raw)

	envelope, err := enmime.ReadEnvelope(strings.NewReader(repaired))
	if err != nil {
		return nil, errors.Wrap(err, "parsing message")
	}

	body := &ExtractedBody{
		Text: cleanText(envelope.Text),
	}

	if envelope.HTML != "" {
		htmlText, err := htmlToPlainText(envelope.HTML)
		if err != nil || htmlText == "" {
			// Fall back to the blunt converter when parsing fails.
			if converted, cerr := html2text.FromString(envelope.HTML, html2text.Options{TextOnly: true}); cerr == nil {
				htmlText = converted
			}
		}
		body.HTMLText = cleanText(htmlText)
	}

	return body, nil
}

// RepairRawMessage applies the header repair pre-pass to the header block
// of a raw message, leaving the body bytes untouched.
func RepairRawMessage(raw string) string {
	headerEnd := strings.Index(raw, "\r\n\r\n")
	sep := "\r\n\r\n"
	if headerEnd < 0 {
		headerEnd = strings.Index(raw, "\n\n")
		sep = "\n\n"
	}
	if headerEnd < 0 {
		return header_repair.RepairHeaderBlock(raw)
	}
	header := raw[:headerEnd]
	body := raw[headerEnd+len(sep):]
	return header_repair.RepairHeaderBlock(header) + "\r\n" + body
}

func htmlToPlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style").Each(func(i int, el *goquery.Selection) {
		el.Remove()
	})

	return doc.Find("body").Text(), nil
}

var multiBlankRe = regexp.MustCompile(`\n{3,}`)

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
