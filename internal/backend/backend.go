// Package backend defines the contract every mailbox transport
// implements and the orchestrator that tries them in priority order.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mailbrief/internal/model"
)

// Kind classifies a fetch failure.
type Kind string

const (
	// KindUnavailable means the backend's required configuration is
	// absent; no network I/O was attempted.
	KindUnavailable Kind = "unavailable"

	// KindNetworkTimeout means the attempt's context ended before the
	// transport finished, either the per-backend time budget or a
	// cancelled run.
	KindNetworkTimeout Kind = "network_timeout"

	// KindProxyRejected means the worker API answered non-200.
	KindProxyRejected Kind = "proxy_rejected"

	// KindMalformedInput means a supplied payload failed to parse.
	KindMalformedInput Kind = "malformed_input"

	// KindProviderError covers transport and provider failures.
	KindProviderError Kind = "provider_error"
)

// FetchError describes why one backend could not satisfy a fetch. The
// orchestrator converts it into a try-next signal; it never propagates
// past the orchestrator.
type FetchError struct {
	Backend model.BackendName
	Kind    Kind
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Backend, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrKind extracts the failure kind from an error chain, defaulting to
// KindProviderError for untyped errors.
func ErrKind(err error) Kind {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return KindNetworkTimeout
	}
	return KindProviderError
}

// Unavailable builds the fail-fast error for missing configuration.
func Unavailable(name model.BackendName, err error) *FetchError {
	return &FetchError{Backend: name, Kind: KindUnavailable, Err: err}
}

// Backend is a transport-specific strategy for retrieving mailbox data.
// Fetch returns the messages received within the window, capped at
// limit, newest first.
type Backend interface {
	Name() model.BackendName
	Fetch(
		ctx context.Context, window time.Duration, limit int,
	) (*model.FetchResult, error)
}
