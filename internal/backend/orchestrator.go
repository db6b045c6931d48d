package backend

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nhle/mailbrief/internal/model"
)

// Candidate pairs a backend with its independent attempt timeout.
type Candidate struct {
	Backend Backend
	Timeout time.Duration
}

// Attempt records one backend attempt for diagnostics.
type Attempt struct {
	Backend model.BackendName
	Kind    Kind
	Err     error
}

// ExhaustedError is the only error that surfaces to the pipeline's
// caller: every candidate backend failed. It carries the ordered list of
// per-backend failure reasons.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s (%s)", a.Backend, a.Kind))
	}
	return "all backends exhausted: " + strings.Join(reasons, ", ")
}

// Hint recommends the next configuration step instead of a stack trace.
func (e *ExhaustedError) Hint() string {
	return strings.Join([]string{
		"No backend could fetch mailbox data. Configure one of:",
		"  1. Gmail OAuth tokens: CAPY_GMAIL_ACCESS_TOKEN, CAPY_GMAIL_REFRESH_TOKEN, CAPY_GMAIL_CLIENT_ID, CAPY_GMAIL_CLIENT_SECRET",
		"  2. Worker API: AGENT_WORKER_BASE_URL, AGENT_WORKER_SECRET, FLY_APP_NAME",
		"  3. IMAP app password: CAPY_USER_EMAIL plus EMAIL_PASSWORD",
		"  4. Manual payload: MORNING_EMAIL_DATA or a payload file",
	}, "\n")
}

// defaultTimeout bounds a candidate that did not specify its own.
const defaultTimeout = 30 * time.Second

// Orchestrator tries backends sequentially in a fixed priority order,
// stopping at the first success. Each run samples a backend exactly
// once: failures and timeouts advance to the next candidate, never
// retry. Ordering is fixed, so for fixed inputs the same backend always
// wins.
type Orchestrator struct {
	candidates []Candidate
}

// NewOrchestrator creates an orchestrator over candidates, tried in the
// given order.
func NewOrchestrator(candidates ...Candidate) *Orchestrator {
	return &Orchestrator{candidates: candidates}
}

// Fetch attempts each candidate in order and returns the first
// successful result together with the attempt log. When every candidate
// fails, the returned error is an *ExhaustedError.
func (o *Orchestrator) Fetch(
	ctx context.Context, window time.Duration, limit int,
) (*model.FetchResult, []Attempt, error) {
	var attempts []Attempt

	for _, cand := range o.candidates {
		result, err := o.attempt(ctx, cand, window, limit)
		if err == nil {
			log.Printf("backend %s satisfied the fetch (%d messages)",
				cand.Backend.Name(), len(result.Records))
			return result, attempts, nil
		}

		kind := ErrKind(err)
		attempts = append(attempts, Attempt{
			Backend: cand.Backend.Name(),
			Kind:    kind,
			Err:     err,
		})
		log.Printf("backend %s failed (%s): %v", cand.Backend.Name(), kind, err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, attempts, &ExhaustedError{Attempts: attempts}
}

// attempt runs one backend under its own timeout.
func (o *Orchestrator) attempt(
	ctx context.Context,
	cand Candidate,
	window time.Duration,
	limit int,
) (*model.FetchResult, error) {
	timeout := cand.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := cand.Backend.Fetch(attemptCtx, window, limit)
	if err != nil {
		return nil, err
	}

	result.SourceBackend = cand.Backend.Name()
	if result.FetchedAt.IsZero() {
		result.FetchedAt = time.Now().UTC()
	}
	return result, nil
}
