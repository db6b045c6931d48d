// Package proxy implements the remote worker API backend: mailbox reads
// delegated to a trusted HTTP endpoint that holds the account
// credentials on the operator's behalf.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/mailbrief/internal/backend"
	"github.com/nhle/mailbrief/internal/config"
	"github.com/nhle/mailbrief/internal/model"
	"github.com/nhle/mailbrief/internal/normalize"
)

const readPath = "/api/email/read"

// request is the worker API read request body.
type request struct {
	UserEmail  string `json:"user_email"`
	MaxResults int    `json:"max_results"`
	TimeRange  string `json:"time_range"`
}

// responseEmail is one message as reported by the worker.
type responseEmail struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
	Unread  bool   `json:"unread"`
}

// response is the worker API read response body.
type response struct {
	EmailAddress string          `json:"email_address"`
	TotalCount   int             `json:"total_count"`
	UnreadCount  int             `json:"unread_count"`
	Emails       []responseEmail `json:"emails"`
}

// WorkerBackend POSTs fetch requests to the configured worker endpoint
// with a bearer secret and a sandbox/session identifier header.
type WorkerBackend struct {
	account    string
	cfg        config.ProxyConfig
	excerptLen int
	httpClient *http.Client
}

// NewWorkerBackend creates the worker proxy backend.
func NewWorkerBackend(
	account string, cfg config.ProxyConfig, excerptLen int,
) *WorkerBackend {
	return &WorkerBackend{
		account:    account,
		cfg:        cfg,
		excerptLen: excerptLen,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *WorkerBackend) Name() model.BackendName {
	return model.BackendWorkerProxy
}

// Fetch posts the read request and maps the worker's response to
// canonical records. Any non-200 response is a proxy rejection.
func (b *WorkerBackend) Fetch(
	ctx context.Context, window time.Duration, limit int,
) (*model.FetchResult, error) {
	if b.cfg.BaseURL == "" || b.cfg.Secret == "" || b.cfg.SessionID == "" {
		return nil, backend.Unavailable(b.Name(), errors.New(
			"worker base URL, secret, or session id not configured",
		))
	}

	body, err := json.Marshal(request{
		UserEmail:  b.account,
		MaxResults: limit,
		TimeRange:  fmt.Sprintf("%dh", int(window.Hours())),
	})
	if err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(), Kind: backend.KindProviderError, Err: err,
		}
	}

	url := strings.TrimRight(b.cfg.BaseURL, "/") + readPath
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(body),
	)
	if err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(), Kind: backend.KindProviderError, Err: err,
		}
	}
	req.Header.Set("Authorization", "Bearer "+b.cfg.Secret)
	req.Header.Set("X-Sandbox-Id", b.cfg.SessionID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(), Kind: backend.ErrKind(err), Err: err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(), Kind: backend.KindProviderError, Err: err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &backend.FetchError{
			Backend: b.Name(),
			Kind:    backend.KindProxyRejected,
			Err: fmt.Errorf(
				"worker answered %d: %s",
				resp.StatusCode, strings.TrimSpace(string(respBody)),
			),
		}
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(),
			Kind:    backend.KindProxyRejected,
			Err:     fmt.Errorf("unparseable worker response: %w", err),
		}
	}

	records := make([]model.EmailRecord, 0, len(parsed.Emails))
	for _, e := range parsed.Emails {
		records = append(records, model.EmailRecord{
			ID:          e.ID,
			Subject:     normalize.Subject(e.Subject),
			From:        normalize.Sender(e.From),
			Date:        e.Date,
			BodyExcerpt: normalize.BodyExcerpt(e.Snippet, b.excerptLen),
			Unread:      e.Unread,
		})
	}

	identity := parsed.EmailAddress
	if identity == "" {
		identity = b.account
	}

	total := parsed.TotalCount
	if total == 0 {
		total = len(records)
	}

	return &model.FetchResult{
		SourceBackend:   b.Name(),
		AccountIdentity: identity,
		TotalCount:      total,
		UnreadCount:     parsed.UnreadCount,
		Records:         records,
	}, nil
}
