package feed

import "errors"

var (
	// ErrClosed is returned by operations on a controller after Close.
	ErrClosed = errors.New("feed controller closed")

	// ErrInvariantViolation signals a page that breaks the pagination
	// contract, such as a next offset behind the requested one. A conforming
	// PageFetcher never produces it.
	ErrInvariantViolation = errors.New("pagination invariant violated")
)
