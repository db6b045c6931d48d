package normalize

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderDecodesEncodedWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "utf-8 base64 encoded word",
			in:   "=?UTF-8?B?5Lya6K6u6YCa55+l?=",
			want: "会议通知",
		},
		{
			name: "utf-8 quoted printable",
			in:   "=?utf-8?Q?Caf=C3=A9_meeting?=",
			want: "Café meeting",
		},
		{
			name: "plain ascii passes through",
			in:   "Weekly status",
			want: "Weekly status",
		},
		{
			name: "malformed encoded word returns raw",
			in:   "=?UTF-8?B?not-base64!!?=",
			want: "=?UTF-8?B?not-base64!!?=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Header(tt.in))
		})
	}
}

func TestSubjectAndSenderPlaceholders(t *testing.T) {
	assert.Equal(t, NoSubject, Subject(""))
	assert.Equal(t, NoSubject, Subject("   "))
	assert.Equal(t, "Hello", Subject("Hello"))

	assert.Equal(t, UnknownSender, Sender(""))
	assert.Equal(t, "Alice <alice@example.com>", Sender("Alice <alice@example.com>"))
}

func TestBase64URLText(t *testing.T) {
	t.Run("padded", func(t *testing.T) {
		data := base64.URLEncoding.EncodeToString([]byte("hello world"))
		assert.Equal(t, "hello world", Base64URLText(data))
	})

	t.Run("unpadded", func(t *testing.T) {
		data := base64.RawURLEncoding.EncodeToString([]byte("hello world"))
		assert.Equal(t, "hello world", Base64URLText(data))
	})

	t.Run("invalid input yields placeholder", func(t *testing.T) {
		assert.Equal(t, NoTextContent, Base64URLText("***"))
	})

	t.Run("empty input yields placeholder", func(t *testing.T) {
		assert.Equal(t, NoTextContent, Base64URLText(""))
	})
}

func TestExcerptIsRuneSafe(t *testing.T) {
	s := "早上好，今天有三个会议需要参加"

	got := Excerpt(s, 5)

	assert.Equal(t, "早上好，今", got)
	assert.True(t, strings.HasPrefix(s, got))
}

func TestExcerptShortInputUnchanged(t *testing.T) {
	assert.Equal(t, "short", Excerpt("  short  ", 100))
}

func TestBodyExcerpt(t *testing.T) {
	assert.Equal(t, NoTextContent, BodyExcerpt("", 100))
	assert.Equal(t, NoTextContent, BodyExcerpt("   ", 100))
	assert.Equal(t, "abc", BodyExcerpt("abcdef", 3))
}

func TestStripTags(t *testing.T) {
	html := "<div>Please review the report<br>Thanks &amp; regards</div>"

	got := StripTags(html)

	assert.Equal(t, "Please review the report\nThanks & regards", got)
}

func TestStripTagsCollapsesBlankRuns(t *testing.T) {
	html := "line one</p></p></p></p>line two"

	got := StripTags(html)

	assert.Equal(t, "line one\n\nline two", got)
}
