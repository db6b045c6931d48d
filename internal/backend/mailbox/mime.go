package mailbox

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailbrief/internal/normalize"
)

// plainTextFromRaw parses a raw RFC 2822 message and returns its
// plain-text body. A text/plain part wins; an HTML-only message is
// stripped down to text. The second return reports whether any body was
// recovered.
func plainTextFromRaw(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable structure: treat the payload as plain text.
		return string(raw), true
	}
	defer mr.Close()

	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			return string(body), true
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		}
	}

	if htmlBody != "" {
		return normalize.StripTags(htmlBody), true
	}
	return "", false
}
