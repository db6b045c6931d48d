package model

import "time"

// BackendName identifies which transport produced a fetch result.
type BackendName string

const (
	BackendEnvGmail    BackendName = "env_gmail"
	BackendGmailAPI    BackendName = "gmail_api"
	BackendWorkerProxy BackendName = "worker_proxy"
	BackendIMAP        BackendName = "imap"
	BackendManual      BackendName = "manual"
	BackendMock        BackendName = "mock"
)

// EmailRecord is the canonical, transport-independent representation of one
// message. It is produced 1:1 from a raw transport message by the fetching
// backend and is immutable afterward, except for the two annotation fields
// (Automated, ActionableSentences) written by the classification pass.
type EmailRecord struct {
	// ID is the message identifier within its transport (Gmail message id,
	// IMAP UID, or a synthetic id for manual/mock records).
	ID string `json:"id"`

	// Subject is the decoded subject line.
	Subject string `json:"subject"`

	// From is the decoded sender header.
	From string `json:"from"`

	// Date is the raw Date header value as reported by the transport.
	Date string `json:"date"`

	// BodyExcerpt is the plain-text body truncated to the configured
	// excerpt length. Never empty: decoding failures and missing text
	// parts are marked with an explicit placeholder.
	BodyExcerpt string `json:"body"`

	// Unread reports whether the message was unseen at fetch time.
	Unread bool `json:"unread"`

	// Automated marks senders and subjects matched by the noise
	// classifier. Advisory metadata, never a filter.
	Automated bool `json:"automated"`

	// ActionableSentences holds up to three body fragments surfaced by
	// the actionable-content extractor. Empty for automated messages.
	ActionableSentences []string `json:"actionable_content,omitempty"`

	// Labels holds transport label/flag names (e.g. Gmail label ids).
	Labels []string `json:"labels,omitempty"`
}

// FetchResult aggregates one backend's view of the mailbox window. It is
// owned by the fetch orchestrator and read-only to downstream stages.
type FetchResult struct {
	// SourceBackend names the backend that satisfied the request.
	SourceBackend BackendName `json:"source_backend"`

	// AccountIdentity is the mailbox address the records came from, when
	// the transport can report it.
	AccountIdentity string `json:"account_identity,omitempty"`

	// TotalCount is the mailbox size as reported by the transport, or the
	// number of records when the transport has no cheap total.
	TotalCount int `json:"total_count"`

	// UnreadCount is the transport's unread estimate.
	UnreadCount int `json:"unread_count"`

	// Records holds the fetched messages, newest first.
	Records []EmailRecord `json:"emails"`

	// Summary is a pre-built one-line email summary. Only the manual
	// backend supplies it; for all others it is derived from the records.
	Summary string `json:"email_summary,omitempty"`

	// UserTasks carries user-declared task texts from the manual payload
	// through to the synthesizer.
	UserTasks []string `json:"custom_tasks,omitempty"`

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// KeyEmail is one entry of the manual payload's message list.
type KeyEmail struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// ManualPayload is the operator-supplied input schema used when no live
// transport is available.
type ManualPayload struct {
	EmailSummary string     `json:"email_summary"`
	KeyEmails    []KeyEmail `json:"key_emails"`
	CustomTasks  []string   `json:"custom_tasks"`
}
