package model

import "time"

// BriefingResult is the pipeline's sole externally visible output,
// immutable once produced. Renderers are pure consumers: they must not
// mutate and re-feed this structure back into the pipeline.
type BriefingResult struct {
	// ID is the unique identifier of this briefing run.
	ID string `json:"id"`

	// EmailSummary is the one-line mailbox summary.
	EmailSummary string `json:"email_summary"`

	// Tasks is the prioritized task list, in synthesis order.
	Tasks []Task `json:"tasks"`

	// SourceBackend names the backend that supplied the mailbox data.
	SourceBackend BackendName `json:"source_backend"`

	// GeneratedAt is when the briefing was assembled.
	GeneratedAt time.Time `json:"generated_at"`
}
