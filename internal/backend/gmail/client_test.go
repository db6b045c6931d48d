package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/nhle/mailbrief/internal/normalize"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestPlainTextBody(t *testing.T) {
	t.Run("single part plain text", func(t *testing.T) {
		payload := &gmailapi.MessagePart{
			MimeType: "text/plain",
			Body:     &gmailapi.MessagePartBody{Data: b64("hello")},
		}

		body, found := plainTextBody(payload)

		assert.True(t, found)
		assert.Equal(t, "hello", body)
	})

	t.Run("multipart with plain text leaf", func(t *testing.T) {
		payload := &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/html",
					Body:     &gmailapi.MessagePartBody{Data: b64("<b>hi</b>")},
				},
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: b64("plain wins")},
				},
			},
		}

		body, found := plainTextBody(payload)

		assert.True(t, found)
		assert.Equal(t, "plain wins", body)
	})

	t.Run("descends into multipart alternative", func(t *testing.T) {
		payload := &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmailapi.MessagePart{
						{
							MimeType: "text/html",
							Body:     &gmailapi.MessagePartBody{Data: b64("<i>x</i>")},
						},
						{
							MimeType: "text/plain",
							Body:     &gmailapi.MessagePartBody{Data: b64("nested plain")},
						},
					},
				},
			},
		}

		body, found := plainTextBody(payload)

		assert.True(t, found)
		assert.Equal(t, "nested plain", body)
	})

	t.Run("html only message has no plain body", func(t *testing.T) {
		payload := &gmailapi.MessagePart{
			MimeType: "text/html",
			Body:     &gmailapi.MessagePartBody{Data: b64("<b>hi</b>")},
		}

		_, found := plainTextBody(payload)

		assert.False(t, found)
	})

	t.Run("attachment part without inline data", func(t *testing.T) {
		payload := &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{AttachmentId: "att-1"},
				},
			},
		}

		_, found := plainTextBody(payload)

		assert.False(t, found)
	})

	t.Run("nil payload", func(t *testing.T) {
		_, found := plainTextBody(nil)
		assert.False(t, found)
	})
}

func TestRecordFromFull(t *testing.T) {
	msg := &gmailapi.Message{
		Id:       "msg-1",
		LabelIds: []string{"INBOX", "UNREAD"},
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: "=?UTF-8?B?5Lya6K6u6YCa55+l?="},
				{Name: "From", Value: "Alice <alice@company.com>"},
				{Name: "Date", Value: "Mon, 01 Sep 2025 08:00:00 +0000"},
			},
			Body: &gmailapi.MessagePartBody{Data: b64("body text")},
		},
	}

	rec := recordFromFull(msg, 500)

	assert.Equal(t, "msg-1", rec.ID)
	assert.Equal(t, "会议通知", rec.Subject)
	assert.Equal(t, "Alice <alice@company.com>", rec.From)
	assert.Equal(t, "Mon, 01 Sep 2025 08:00:00 +0000", rec.Date)
	assert.Equal(t, "body text", rec.BodyExcerpt)
	assert.True(t, rec.Unread)
}

func TestRecordFromFullWithoutTextPart(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "msg-2",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/html",
			Body:     &gmailapi.MessagePartBody{Data: b64("<b>x</b>")},
		},
	}

	rec := recordFromFull(msg, 500)

	assert.Equal(t, normalize.NoTextContent, rec.BodyExcerpt)
	assert.Equal(t, normalize.NoSubject, rec.Subject)
	assert.Equal(t, normalize.UnknownSender, rec.From)
	assert.False(t, rec.Unread)
}

func TestRecordFromMetadata(t *testing.T) {
	msg := &gmailapi.Message{
		Id:      "msg-3",
		Snippet: "Please review the attached doc",
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "subject", Value: "Design doc"},
				{Name: "FROM", Value: "bob@company.com"},
			},
		},
	}

	rec := recordFromMetadata(msg, 500)

	require.Equal(t, "msg-3", rec.ID)
	assert.Equal(t, "Design doc", rec.Subject, "header lookup is case-insensitive")
	assert.Equal(t, "bob@company.com", rec.From)
	assert.Equal(t, "Please review the attached doc", rec.BodyExcerpt)
}

func TestRecordExcerptTruncation(t *testing.T) {
	long := make([]byte, 0, 600)
	for i := 0; i < 600; i++ {
		long = append(long, 'a')
	}
	msg := &gmailapi.Message{
		Id: "msg-4",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Body:     &gmailapi.MessagePartBody{Data: b64(string(long))},
		},
	}

	rec := recordFromFull(msg, 500)

	assert.Len(t, rec.BodyExcerpt, 500)
}
