package mailbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestPlainTextFromRawSinglePart(t *testing.T) {
	raw := crlf(`From: alice@company.com
To: me@example.com
Subject: Hello
Content-Type: text/plain; charset=utf-8

Please review the attached proposal by Friday.
`)

	body, ok := plainTextFromRaw(raw)

	require.True(t, ok)
	assert.Contains(t, body, "Please review the attached proposal by Friday.")
}

func TestPlainTextFromRawMultipartPrefersPlain(t *testing.T) {
	raw := crlf(`From: alice@company.com
To: me@example.com
Subject: Hello
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary=frontier

--frontier
Content-Type: text/html; charset=utf-8

<p>rich version</p>
--frontier
Content-Type: text/plain; charset=utf-8

plain version
--frontier--
`)

	body, ok := plainTextFromRaw(raw)

	require.True(t, ok)
	assert.Contains(t, body, "plain version")
	assert.NotContains(t, body, "rich version")
}

func TestPlainTextFromRawHTMLOnlyGetsStripped(t *testing.T) {
	raw := crlf(`From: alice@company.com
To: me@example.com
Subject: Hello
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary=frontier

--frontier
Content-Type: text/html; charset=utf-8

<div>Please review the <b>budget</b> today</div>
--frontier--
`)

	body, ok := plainTextFromRaw(raw)

	require.True(t, ok)
	assert.Contains(t, body, "Please review the budget today")
	assert.NotContains(t, body, "<b>")
}

func TestPlainTextFromRawEmpty(t *testing.T) {
	_, ok := plainTextFromRaw(nil)
	assert.False(t, ok)
}

func TestPlainTextFromRawUnparseableFallsBackToRaw(t *testing.T) {
	body, ok := plainTextFromRaw([]byte("just some bytes, not a message"))

	require.True(t, ok)
	assert.Equal(t, "just some bytes, not a message", body)
}
