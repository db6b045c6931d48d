// Package mock implements the last-resort demo backend: a fixed set of
// sample messages so the pipeline always produces a briefing, even with
// nothing configured.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/mailbrief/internal/model"
)

// sample is one built-in demo message. Bodies are written to exercise
// the downstream classification stages the way live mail would.
type sample struct {
	subject string
	from    string
	age     time.Duration
	body    string
	unread  bool
}

var samples = []sample{
	{
		subject: "Morning Routine Skill - Testing Request",
		from:    "user@example.com",
		age:     0,
		body:    "Please test the morning routine skill with real email data and provide feedback on the workflow.",
		unread:  true,
	},
	{
		subject: "Feature Request: Calendar Integration",
		from:    "product@example.com",
		age:     2 * time.Hour,
		body:    "It would be great to integrate calendar events into the morning routine to show upcoming meetings.",
		unread:  true,
	},
	{
		subject: "System Update: Deployment Completed",
		from:    "noreply@system.com",
		age:     5 * time.Hour,
		body:    "The morning-routine skill has been successfully deployed to production environment.",
		unread:  false,
	},
}

// Backend always succeeds with the built-in samples.
type Backend struct {
	// Now is the clock used for sample dates. Defaults to time.Now.
	Now func() time.Time
}

// NewBackend creates the demo backend.
func NewBackend() *Backend {
	return &Backend{}
}

func (b *Backend) Name() model.BackendName {
	return model.BackendMock
}

// Fetch returns the demo records with dates relative to the current
// time.
func (b *Backend) Fetch(
	_ context.Context, _ time.Duration, _ int,
) (*model.FetchResult, error) {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	records := make([]model.EmailRecord, 0, len(samples))
	unread := 0
	for i, s := range samples {
		if s.unread {
			unread++
		}
		records = append(records, model.EmailRecord{
			ID:          fmt.Sprintf("mock-%d", i+1),
			Subject:     s.subject,
			From:        s.from,
			Date:        now().Add(-s.age).Format("Mon, 02 Jan 2006 15:04:05"),
			BodyExcerpt: s.body,
			Unread:      s.unread,
		})
	}

	return &model.FetchResult{
		SourceBackend: b.Name(),
		TotalCount:    len(records),
		UnreadCount:   unread,
		Records:       records,
	}, nil
}
