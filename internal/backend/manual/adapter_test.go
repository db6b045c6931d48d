package manual

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailbrief/internal/backend"
	"github.com/nhle/mailbrief/internal/config"
	"github.com/nhle/mailbrief/internal/model"
)

const validPayload = `{
	"email_summary": "3 important emails from the team",
	"key_emails": [
		{"from": "boss@company.com", "subject": "Quarterly review", "snippet": "Please prepare your slides"},
		{"from": "alice@company.com", "subject": "Design feedback", "snippet": "Left comments on the doc"}
	],
	"custom_tasks": ["Finish expense report"]
}`

func fetch(t *testing.T, b *PayloadBackend) (*model.FetchResult, error) {
	t.Helper()
	return b.Fetch(context.Background(), 24*time.Hour, 10)
}

func TestPayloadBackendInlineJSON(t *testing.T) {
	b := NewPayloadBackend(config.ManualConfig{PayloadJSON: validPayload}, 500)

	result, err := fetch(t, b)
	require.NoError(t, err)

	assert.Equal(t, model.BackendManual, result.SourceBackend)
	assert.Equal(t, "3 important emails from the team", result.Summary)
	assert.Equal(t, []string{"Finish expense report"}, result.UserTasks)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 2, result.UnreadCount)

	require.Len(t, result.Records, 2)
	assert.Equal(t, "manual-1", result.Records[0].ID)
	assert.Equal(t, "Quarterly review", result.Records[0].Subject)
	assert.Equal(t, "boss@company.com", result.Records[0].From)
	assert.Equal(t, "Please prepare your slides", result.Records[0].BodyExcerpt)
	assert.True(t, result.Records[0].Unread)
}

func TestPayloadBackendFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(validPayload), 0o600))

	b := NewPayloadBackend(config.ManualConfig{PayloadPath: path}, 500)

	result, err := fetch(t, b)
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
}

func TestPayloadBackendInlineWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(
		path, []byte(`{"email_summary": "from file"}`), 0o600,
	))

	b := NewPayloadBackend(config.ManualConfig{
		PayloadPath: path,
		PayloadJSON: `{"email_summary": "inline"}`,
	}, 500)

	result, err := fetch(t, b)
	require.NoError(t, err)
	assert.Equal(t, "inline", result.Summary)
}

func TestPayloadBackendMalformedJSON(t *testing.T) {
	b := NewPayloadBackend(config.ManualConfig{PayloadJSON: "{not json"}, 500)

	_, err := fetch(t, b)

	var fetchErr *backend.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, backend.KindMalformedInput, fetchErr.Kind)
}

func TestPayloadBackendUnconfigured(t *testing.T) {
	b := NewPayloadBackend(config.ManualConfig{}, 500)

	_, err := fetch(t, b)

	assert.Equal(t, backend.KindUnavailable, backend.ErrKind(err))
}

func TestPayloadBackendMissingFile(t *testing.T) {
	b := NewPayloadBackend(config.ManualConfig{
		PayloadPath: filepath.Join(t.TempDir(), "absent.json"),
	}, 500)

	_, err := fetch(t, b)

	assert.Equal(t, backend.KindUnavailable, backend.ErrKind(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestPayloadBackendPlaceholders(t *testing.T) {
	b := NewPayloadBackend(config.ManualConfig{
		PayloadJSON: `{"key_emails": [{"from": "", "subject": "", "snippet": ""}]}`,
	}, 500)

	result, err := fetch(t, b)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "(no subject)", result.Records[0].Subject)
	assert.Equal(t, "(unknown sender)", result.Records[0].From)
	assert.Equal(t, "(no plain text content)", result.Records[0].BodyExcerpt)
}
