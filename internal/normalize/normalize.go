// Package normalize decodes transport-specific encodings into plain text.
// Every helper is per-message and recovers from malformed input with an
// explicit placeholder: a single bad message must never abort a batch.
package normalize

import (
	"encoding/base64"
	"mime"
	"regexp"
	"strings"

	"github.com/emersion/go-message/charset"
)

// Placeholders substituted for fields that cannot be decoded.
const (
	NoSubject     = "(no subject)"
	UnknownSender = "(unknown sender)"
	NoTextContent = "(no plain text content)"
)

// wordDecoder handles RFC 2047 encoded-words, using go-message's charset
// registry so non-UTF-8 encodings (GB2312, ISO-2022-JP, ...) decode too.
var wordDecoder = mime.WordDecoder{CharsetReader: charset.Reader}

// Header decodes RFC 2047 encoded-words in a header value. On decode
// failure the raw value is returned rather than an error.
func Header(s string) string {
	if s == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// Subject decodes a subject header, substituting a placeholder when empty.
func Subject(s string) string {
	if decoded := strings.TrimSpace(Header(s)); decoded != "" {
		return decoded
	}
	return NoSubject
}

// Sender decodes a From header, substituting a placeholder when empty.
func Sender(s string) string {
	if decoded := strings.TrimSpace(Header(s)); decoded != "" {
		return decoded
	}
	return UnknownSender
}

// Base64URLText decodes a base64url body segment (padded or raw) into
// text. Decode failure collapses into the no-content placeholder.
func Base64URLText(data string) string {
	if data == "" {
		return NoTextContent
	}
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
	}
	if err != nil {
		return NoTextContent
	}
	return string(decoded)
}

// Excerpt truncates s to at most max runes without splitting a multi-byte
// character, trimming surrounding whitespace first.
func Excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// BodyExcerpt truncates a decoded body, substituting a placeholder when
// there is no text content at all.
func BodyExcerpt(s string, max int) string {
	excerpt := Excerpt(s, max)
	if excerpt == "" {
		return NoTextContent
	}
	return excerpt
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes markup tags and decodes common entities, giving a
// rough plain-text rendering of HTML bodies.
func StripTags(s string) string {
	if s == "" {
		return ""
	}

	result := s
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = tagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
