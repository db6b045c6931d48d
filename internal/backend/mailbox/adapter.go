// Package mailbox implements the direct IMAP backend, used when an app
// password is available but no REST credentials are.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailbrief/internal/backend"
	"github.com/nhle/mailbrief/internal/config"
	"github.com/nhle/mailbrief/internal/credential"
	"github.com/nhle/mailbrief/internal/model"
	"github.com/nhle/mailbrief/internal/normalize"
)

// IMAPBackend connects to the configured IMAP host over TLS and reads
// the inbox directly.
type IMAPBackend struct {
	account    string
	password   string
	cfg        config.IMAPConfig
	excerptLen int
}

// NewIMAPBackend creates the direct IMAP backend.
func NewIMAPBackend(
	account, password string, cfg config.IMAPConfig, excerptLen int,
) *IMAPBackend {
	return &IMAPBackend{
		account:    account,
		password:   password,
		cfg:        cfg,
		excerptLen: excerptLen,
	}
}

func (b *IMAPBackend) Name() model.BackendName {
	return model.BackendIMAP
}

// Fetch connects, selects INBOX, determines the unread UID set up front,
// then fetches recent messages with their bodies in one round trip.
// Large mailboxes skip the date search and slice the most recent
// sequence numbers instead.
func (b *IMAPBackend) Fetch(
	ctx context.Context, window time.Duration, limit int,
) (*model.FetchResult, error) {
	if b.account == "" || b.password == "" {
		return nil, backend.Unavailable(b.Name(), errors.New(
			"mailbox address or app password not configured",
		))
	}

	addr := b.cfg.Host + ":" + b.cfg.Port
	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, backend.Unavailable(b.Name(),
			fmt.Errorf("connecting to %s: %w", addr, err))
	}
	defer func() { _ = client.Logout().Wait() }()

	if err := client.Login(b.account, b.password).Wait(); err != nil {
		return nil, backend.Unavailable(b.Name(), &credential.AuthError{
			Reason: credential.ReasonProviderRejected,
			Err: fmt.Errorf(
				"authentication failed for %s: %w", b.account, err,
			),
		})
	}

	selected, err := client.Select("INBOX", nil).Wait()
	if err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(),
			Kind:    backend.KindProviderError,
			Err:     fmt.Errorf("selecting INBOX: %w", err),
		}
	}
	total := int(selected.NumMessages)

	unseen, err := b.unseenUIDs(client)
	if err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(), Kind: backend.ErrKind(err), Err: err,
		}
	}

	var fetchCmd *imapclient.FetchCommand
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	if total > b.cfg.LargeMailboxThreshold {
		// Date search cost grows with mailbox size. Past the threshold,
		// slice the most recent sequence numbers directly.
		first := uint32(1)
		if total > limit {
			first = uint32(total - limit + 1)
		}
		var seqSet imap.SeqSet
		seqSet.AddRange(first, uint32(total))
		fetchCmd = client.Fetch(seqSet, fetchOpts)
	} else {
		criteria := &imap.SearchCriteria{
			Since: time.Now().Add(-window),
		}
		searchData, err := client.UIDSearch(criteria, nil).Wait()
		if err != nil {
			return nil, &backend.FetchError{
				Backend: b.Name(),
				Kind:    backend.KindProviderError,
				Err:     fmt.Errorf("searching messages: %w", err),
			}
		}

		uids := searchData.AllUIDs()
		if limit > 0 && len(uids) > limit {
			uids = uids[len(uids)-limit:]
		}
		if len(uids) == 0 {
			return &model.FetchResult{
				SourceBackend:   b.Name(),
				AccountIdentity: b.account,
				TotalCount:      total,
				UnreadCount:     len(unseen),
			}, nil
		}
		fetchCmd = client.Fetch(imap.UIDSetNum(uids...), fetchOpts)
	}
	defer fetchCmd.Close()

	var records []model.EmailRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, &backend.FetchError{
				Backend: b.Name(),
				Kind:    backend.KindNetworkTimeout,
				Err:     err,
			}
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			// One unreadable message never aborts the batch.
			continue
		}

		records = append(records, b.record(buf, bodySection, unseen))
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, &backend.FetchError{
			Backend: b.Name(),
			Kind:    backend.KindProviderError,
			Err:     fmt.Errorf("fetching messages: %w", err),
		}
	}

	return &model.FetchResult{
		SourceBackend:   b.Name(),
		AccountIdentity: b.account,
		TotalCount:      total,
		UnreadCount:     len(unseen),
		Records:         records,
	}, nil
}

// unseenUIDs returns the UIDs of all unseen inbox messages. Membership
// drives both the unread count and the per-record unread flag, so it is
// computed once before any fetch.
func (b *IMAPBackend) unseenUIDs(
	client *imapclient.Client,
) (map[imap.UID]bool, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	unseen := make(map[imap.UID]bool)
	for _, uid := range searchData.AllUIDs() {
		unseen[uid] = true
	}
	return unseen, nil
}

// record builds a canonical record from one fetched message buffer.
func (b *IMAPBackend) record(
	buf *imapclient.FetchMessageBuffer,
	bodySection *imap.FetchItemBodySection,
	unseen map[imap.UID]bool,
) model.EmailRecord {
	rec := model.EmailRecord{
		ID:      fmt.Sprintf("imap-%d", uint32(buf.UID)),
		Subject: normalize.NoSubject,
		From:    normalize.UnknownSender,
		Unread:  unseen[buf.UID],
	}

	if buf.Envelope != nil {
		rec.Subject = normalize.Subject(buf.Envelope.Subject)
		rec.From = normalize.Sender(senderAddress(buf.Envelope))
		if !buf.Envelope.Date.IsZero() {
			rec.Date = buf.Envelope.Date.Format(time.RFC1123Z)
		}
	}

	body := normalize.NoTextContent
	if raw := buf.FindBodySection(bodySection); raw != nil {
		if text, ok := plainTextFromRaw(raw); ok {
			body = text
		}
	}
	rec.BodyExcerpt = normalize.BodyExcerpt(body, b.excerptLen)

	return rec
}

// senderAddress formats the first From address as "Name <addr>" when a
// display name exists, otherwise the bare address.
func senderAddress(env *imap.Envelope) string {
	if len(env.From) == 0 {
		return ""
	}
	from := env.From[0]
	if from.Name != "" {
		return fmt.Sprintf("%s <%s>", from.Name, from.Addr())
	}
	return from.Addr()
}
