// Package manual implements the operator-supplied payload backend: a
// JSON document standing in for a live mailbox, provided inline or as a
// file.
package manual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nhle/mailbrief/internal/backend"
	"github.com/nhle/mailbrief/internal/config"
	"github.com/nhle/mailbrief/internal/model"
	"github.com/nhle/mailbrief/internal/normalize"
)

// PayloadBackend reads the manual briefing payload. Inline JSON wins
// over the file path when both are configured.
type PayloadBackend struct {
	cfg        config.ManualConfig
	excerptLen int
}

// NewPayloadBackend creates the manual payload backend.
func NewPayloadBackend(
	cfg config.ManualConfig, excerptLen int,
) *PayloadBackend {
	return &PayloadBackend{cfg: cfg, excerptLen: excerptLen}
}

func (b *PayloadBackend) Name() model.BackendName {
	return model.BackendManual
}

// Fetch parses the payload and maps its key emails to canonical records.
// Manual records are always treated as unread: the operator listed them
// because they need attention.
func (b *PayloadBackend) Fetch(
	ctx context.Context, _ time.Duration, _ int,
) (*model.FetchResult, error) {
	raw, err := b.rawPayload()
	if err != nil {
		return nil, err
	}

	var payload model.ManualPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(),
			Kind:    backend.KindMalformedInput,
			Err:     fmt.Errorf("parsing manual payload: %w", err),
		}
	}

	records := make([]model.EmailRecord, 0, len(payload.KeyEmails))
	for i, e := range payload.KeyEmails {
		records = append(records, model.EmailRecord{
			ID:          fmt.Sprintf("manual-%d", i+1),
			Subject:     normalize.Subject(e.Subject),
			From:        normalize.Sender(e.From),
			BodyExcerpt: normalize.BodyExcerpt(e.Snippet, b.excerptLen),
			Unread:      true,
		})
	}

	return &model.FetchResult{
		SourceBackend: b.Name(),
		TotalCount:    len(records),
		UnreadCount:   len(records),
		Records:       records,
		Summary:       strings.TrimSpace(payload.EmailSummary),
		UserTasks:     payload.CustomTasks,
	}, nil
}

// rawPayload returns the payload bytes, preferring inline JSON.
func (b *PayloadBackend) rawPayload() ([]byte, error) {
	if b.cfg.PayloadJSON != "" {
		return []byte(b.cfg.PayloadJSON), nil
	}

	if b.cfg.PayloadPath == "" {
		return nil, backend.Unavailable(b.Name(), errors.New(
			"no manual payload configured",
		))
	}

	raw, err := os.ReadFile(b.cfg.PayloadPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backend.Unavailable(b.Name(), err)
		}
		return nil, &backend.FetchError{
			Backend: b.Name(),
			Kind:    backend.KindMalformedInput,
			Err:     fmt.Errorf("reading manual payload: %w", err),
		}
	}
	return raw, nil
}
