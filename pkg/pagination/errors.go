package pagination

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/astronews/pkg/feed"
)

// Sentinel errors for errors.Is checks against a FetchError.
var (
	// ErrTransport covers network and HTTP level failures of the source.
	ErrTransport = errors.New("transport error")

	// ErrMalformedResponse covers responses with missing or invalid fields.
	ErrMalformedResponse = errors.New("malformed response")
)

// ErrorKind classifies a FetchError.
type ErrorKind string

const (
	// KindTransport is a network or HTTP failure.
	KindTransport ErrorKind = "transport"

	// KindMalformed is a response that does not satisfy the page contract.
	KindMalformed ErrorKind = "malformed"

	// KindInvariant is a request or page that violates pagination arithmetic.
	KindInvariant ErrorKind = "invariant"
)

// FetchError is returned by Fetcher.FetchPage for every failed fetch.
type FetchError struct {
	Kind   ErrorKind
	Offset int
	Limit  int
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page (offset %d, limit %d): %s: %v", e.Offset, e.Limit, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error kind.
func (e *FetchError) Is(target error) bool {
	switch e.Kind {
	case KindTransport:
		return target == ErrTransport
	case KindMalformed:
		return target == ErrMalformedResponse
	case KindInvariant:
		return target == feed.ErrInvariantViolation
	default:
		return false
	}
}

// classify maps a source error onto an error kind. Anything not marked as a
// malformed response or invariant violation is treated as transport failure.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	case errors.Is(err, feed.ErrInvariantViolation):
		return KindInvariant
	default:
		return KindTransport
	}
}
