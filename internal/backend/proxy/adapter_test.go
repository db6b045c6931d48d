package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailbrief/internal/backend"
	"github.com/nhle/mailbrief/internal/config"
	"github.com/nhle/mailbrief/internal/model"
)

func proxyConfig(baseURL string) config.ProxyConfig {
	return config.ProxyConfig{
		BaseURL:   baseURL,
		Secret:    "s3cret",
		SessionID: "sandbox-42",
	}
}

func TestWorkerBackendFetch(t *testing.T) {
	var gotReq request
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/email/read", r.URL.Path)
			assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
			assert.Equal(t, "sandbox-42", r.Header.Get("X-Sandbox-Id"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			json.NewEncoder(w).Encode(response{
				EmailAddress: "user@example.com",
				TotalCount:   12,
				UnreadCount:  4,
				Emails: []responseEmail{
					{
						ID:      "m-1",
						From:    "alice@company.com",
						Subject: "Please review the roadmap",
						Date:    "Mon, 01 Sep 2025 08:00:00 +0000",
						Snippet: "Draft attached",
						Unread:  true,
					},
				},
			})
		},
	))
	defer server.Close()

	b := NewWorkerBackend("user@example.com", proxyConfig(server.URL), 500)

	result, err := b.Fetch(context.Background(), 24*time.Hour, 10)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", gotReq.UserEmail)
	assert.Equal(t, 10, gotReq.MaxResults)
	assert.Equal(t, "24h", gotReq.TimeRange)

	assert.Equal(t, model.BackendWorkerProxy, result.SourceBackend)
	assert.Equal(t, "user@example.com", result.AccountIdentity)
	assert.Equal(t, 12, result.TotalCount)
	assert.Equal(t, 4, result.UnreadCount)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Please review the roadmap", result.Records[0].Subject)
	assert.True(t, result.Records[0].Unread)
}

func TestWorkerBackendRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid secret", http.StatusUnauthorized)
		},
	))
	defer server.Close()

	b := NewWorkerBackend("user@example.com", proxyConfig(server.URL), 500)

	_, err := b.Fetch(context.Background(), 24*time.Hour, 10)

	var fetchErr *backend.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, backend.KindProxyRejected, fetchErr.Kind)
	assert.Contains(t, fetchErr.Error(), "401")
}

func TestWorkerBackendRejectsUnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		},
	))
	defer server.Close()

	b := NewWorkerBackend("user@example.com", proxyConfig(server.URL), 500)

	_, err := b.Fetch(context.Background(), 24*time.Hour, 10)

	assert.Equal(t, backend.KindProxyRejected, backend.ErrKind(err))
}

func TestWorkerBackendUnconfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ProxyConfig
	}{
		{name: "missing base url", cfg: config.ProxyConfig{
			Secret: "s", SessionID: "x",
		}},
		{name: "missing secret", cfg: config.ProxyConfig{
			BaseURL: "http://worker", SessionID: "x",
		}},
		{name: "missing session id", cfg: config.ProxyConfig{
			BaseURL: "http://worker", Secret: "s",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewWorkerBackend("user@example.com", tt.cfg, 500)

			_, err := b.Fetch(context.Background(), 24*time.Hour, 10)

			assert.Equal(t, backend.KindUnavailable, backend.ErrKind(err))
		})
	}
}

func TestWorkerBackendHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			// Drain the POST body so the server notices the client
			// disconnect; an unread body keeps the request context
			// alive and Close would block on this handler.
			io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		},
	))
	defer server.Close()

	b := NewWorkerBackend("user@example.com", proxyConfig(server.URL), 500)

	ctx, cancel := context.WithTimeout(
		context.Background(), 20*time.Millisecond,
	)
	defer cancel()

	start := time.Now()
	_, err := b.Fetch(ctx, 24*time.Hour, 10)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
