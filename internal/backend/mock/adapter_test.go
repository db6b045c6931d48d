package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailbrief/internal/model"
)

func TestMockBackendAlwaysSucceeds(t *testing.T) {
	b := NewBackend()

	result, err := b.Fetch(context.Background(), 24*time.Hour, 10)
	require.NoError(t, err)

	assert.Equal(t, model.BackendMock, result.SourceBackend)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 2, result.UnreadCount)
	require.Len(t, result.Records, 3)

	assert.Equal(t, "mock-1", result.Records[0].ID)
	assert.Equal(t, "Morning Routine Skill - Testing Request", result.Records[0].Subject)
	assert.True(t, result.Records[0].Unread)
	assert.Equal(t, "noreply@system.com", result.Records[2].From)
	assert.False(t, result.Records[2].Unread)
}

func TestMockBackendDatesTrackClock(t *testing.T) {
	fixed := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	b := &Backend{Now: func() time.Time { return fixed }}

	result, err := b.Fetch(context.Background(), 24*time.Hour, 10)
	require.NoError(t, err)

	assert.Equal(t, "Mon, 01 Sep 2025 09:00:00", result.Records[0].Date)
	assert.Equal(t, "Mon, 01 Sep 2025 07:00:00", result.Records[1].Date)
	assert.Equal(t, "Mon, 01 Sep 2025 04:00:00", result.Records[2].Date)
}
