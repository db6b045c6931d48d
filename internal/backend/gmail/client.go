// Package gmail implements the two Gmail REST backends: one driven by
// pre-provisioned environment tokens, one by the persisted credential
// store.
package gmail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/nhle/mailbrief/internal/model"
	"github.com/nhle/mailbrief/internal/normalize"
)

const user = "me"

// Client is a thin wrapper around the Gmail API service.
type Client struct {
	srv *gmailapi.Service
}

// NewClient builds a Gmail API client from a token source. Extra client
// options (endpoint overrides in tests) are passed through.
func NewClient(
	ctx context.Context,
	ts oauth2.TokenSource,
	extra ...option.ClientOption,
) (*Client, error) {
	opts := append(
		[]option.ClientOption{option.WithTokenSource(ts)}, extra...,
	)
	srv, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return &Client{srv: srv}, nil
}

// Profile returns the account address and total message count.
func (c *Client) Profile(ctx context.Context) (*gmailapi.Profile, error) {
	profile, err := c.srv.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return profile, nil
}

// ListRecent returns the ids of inbox messages newer than the window,
// newest first, capped at limit.
func (c *Client) ListRecent(
	ctx context.Context, window time.Duration, limit int,
) ([]string, error) {
	query := fmt.Sprintf("after:%d", time.Now().Add(-window).Unix())

	list, err := c.srv.Users.Messages.List(user).
		LabelIds("INBOX").
		Q(query).
		MaxResults(int64(limit)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	ids := make([]string, 0, len(list.Messages))
	for _, m := range list.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// UnreadEstimate returns the provider's unread-count estimate from a
// single lightweight query.
func (c *Client) UnreadEstimate(ctx context.Context) (int, error) {
	list, err := c.srv.Users.Messages.List(user).
		Q("is:unread").
		MaxResults(1).
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("estimating unread count: %w", err)
	}
	return int(list.ResultSizeEstimate), nil
}

// FullMessage fetches one message with its complete part tree.
func (c *Client) FullMessage(
	ctx context.Context, id string,
) (*gmailapi.Message, error) {
	msg, err := c.srv.Users.Messages.Get(user, id).
		Format("full").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", id, err)
	}
	return msg, nil
}

// MetadataMessage fetches one message's headers and snippet only.
func (c *Client) MetadataMessage(
	ctx context.Context, id string,
) (*gmailapi.Message, error) {
	msg, err := c.srv.Users.Messages.Get(user, id).
		Format("metadata").
		MetadataHeaders("From", "Subject", "Date").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetching message metadata %s: %w", id, err)
	}
	return msg, nil
}

// headerValue returns a header by case-insensitive name.
func headerValue(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// plainTextBody walks a message part tree and returns the first
// text/plain leaf, descending into multipart/alternative children. The
// second return reports whether any plain-text part was found.
func plainTextBody(payload *gmailapi.MessagePart) (string, bool) {
	if payload == nil {
		return "", false
	}

	if payload.MimeType == "text/plain" {
		return decodePartBody(payload)
	}

	for _, part := range payload.Parts {
		switch part.MimeType {
		case "text/plain":
			return decodePartBody(part)
		case "multipart/alternative":
			for _, sub := range part.Parts {
				if sub.MimeType == "text/plain" {
					return decodePartBody(sub)
				}
			}
		}
	}

	return "", false
}

// decodePartBody decodes a part's base64url body data. Attachment parts
// carry an attachment id instead of inline data and yield no body.
func decodePartBody(part *gmailapi.MessagePart) (string, bool) {
	if part.Body == nil || part.Body.Data == "" {
		return "", false
	}
	return normalize.Base64URLText(part.Body.Data), true
}

// recordFromFull builds a canonical record from a full-format message.
func recordFromFull(msg *gmailapi.Message, excerptLen int) model.EmailRecord {
	var headers []*gmailapi.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	body, found := plainTextBody(msg.Payload)
	if !found {
		body = normalize.NoTextContent
	}

	return model.EmailRecord{
		ID:          msg.Id,
		Subject:     normalize.Subject(headerValue(headers, "Subject")),
		From:        normalize.Sender(headerValue(headers, "From")),
		Date:        headerValue(headers, "Date"),
		BodyExcerpt: normalize.BodyExcerpt(body, excerptLen),
		Unread:      hasLabel(msg.LabelIds, "UNREAD"),
		Labels:      msg.LabelIds,
	}
}

// recordFromMetadata builds a canonical record from a metadata-format
// message, using the snippet as the body excerpt.
func recordFromMetadata(msg *gmailapi.Message, excerptLen int) model.EmailRecord {
	var headers []*gmailapi.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	return model.EmailRecord{
		ID:          msg.Id,
		Subject:     normalize.Subject(headerValue(headers, "Subject")),
		From:        normalize.Sender(headerValue(headers, "From")),
		Date:        headerValue(headers, "Date"),
		BodyExcerpt: normalize.BodyExcerpt(msg.Snippet, excerptLen),
		Unread:      hasLabel(msg.LabelIds, "UNREAD"),
		Labels:      msg.LabelIds,
	}
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
