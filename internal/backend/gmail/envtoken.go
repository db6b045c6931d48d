package gmail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/nhle/mailbrief/internal/backend"
	"github.com/nhle/mailbrief/internal/config"
	"github.com/nhle/mailbrief/internal/model"
)

// EnvTokenBackend fetches via the Gmail REST API using OAuth tokens
// pre-provisioned in the environment. It needs zero operator input: when
// any required field is missing it fails fast as unavailable, without
// attempting network I/O, so the orchestrator moves on at no latency
// cost.
type EnvTokenBackend struct {
	cfg   *config.Config
	extra []option.ClientOption
}

// NewEnvTokenBackend creates the env-token backend. Extra client options
// are forwarded to the Gmail service (endpoint overrides in tests).
func NewEnvTokenBackend(
	cfg *config.Config, extra ...option.ClientOption,
) *EnvTokenBackend {
	return &EnvTokenBackend{cfg: cfg, extra: extra}
}

func (b *EnvTokenBackend) Name() model.BackendName {
	return model.BackendEnvGmail
}

// Fetch lists recent inbox messages and builds records from their
// metadata and snippets.
func (b *EnvTokenBackend) Fetch(
	ctx context.Context, window time.Duration, limit int,
) (*model.FetchResult, error) {
	if missing := b.cfg.MissingEnvTokenFields(); len(missing) > 0 {
		return nil, backend.Unavailable(b.Name(), fmt.Errorf(
			"missing %s", strings.Join(missing, ", "),
		))
	}

	oauthCfg := &oauth2.Config{
		ClientID:     b.cfg.Gmail.ClientID,
		ClientSecret: b.cfg.Gmail.ClientSecret,
		Endpoint:     google.Endpoint,
	}
	ts := oauthCfg.TokenSource(ctx, &oauth2.Token{
		AccessToken:  b.cfg.Gmail.AccessToken,
		RefreshToken: b.cfg.Gmail.RefreshToken,
	})

	client, err := NewClient(ctx, ts, b.extra...)
	if err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(), Kind: backend.KindProviderError, Err: err,
		}
	}

	return fetchMetadata(ctx, client, b.Name(), window, limit, b.cfg.ExcerptLen)
}

// fetchMetadata performs the lightweight metadata-format fetch: headers
// and snippets only, no bodies.
func fetchMetadata(
	ctx context.Context,
	client *Client,
	name model.BackendName,
	window time.Duration,
	limit int,
	excerptLen int,
) (*model.FetchResult, error) {
	profile, err := client.Profile(ctx)
	if err != nil {
		return nil, &backend.FetchError{
			Backend: name, Kind: backend.ErrKind(err), Err: err,
		}
	}

	ids, err := client.ListRecent(ctx, window, limit)
	if err != nil {
		return nil, &backend.FetchError{
			Backend: name, Kind: backend.ErrKind(err), Err: err,
		}
	}

	unread, err := client.UnreadEstimate(ctx)
	if err != nil {
		return nil, &backend.FetchError{
			Backend: name, Kind: backend.ErrKind(err), Err: err,
		}
	}

	records := make([]model.EmailRecord, 0, len(ids))
	for _, id := range ids {
		msg, err := client.MetadataMessage(ctx, id)
		if err != nil {
			// One unreadable message never aborts the batch.
			continue
		}
		records = append(records, recordFromMetadata(msg, excerptLen))
	}

	return &model.FetchResult{
		SourceBackend:   name,
		AccountIdentity: profile.EmailAddress,
		TotalCount:      int(profile.MessagesTotal),
		UnreadCount:     unread,
		Records:         records,
	}, nil
}
