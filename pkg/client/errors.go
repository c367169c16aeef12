package client

import (
	"fmt"

	"github.com/Sternrassler/astronews/pkg/pagination"
)

// ErrorClass represents a classification of source errors.
type ErrorClass string

const (
	// ErrorClassNetwork represents network and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassMalformed represents a response body that does not decode
	// into a page.
	ErrorClassMalformed ErrorClass = "malformed"
)

// SourceError is returned by Fetch for every failed request.
type SourceError struct {
	Class      ErrorClass
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	msg := fmt.Sprintf("news source %s error", e.Class)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is maps malformed responses to pagination.ErrMalformedResponse and every
// other class to pagination.ErrTransport.
func (e *SourceError) Is(target error) bool {
	if e.Class == ErrorClassMalformed {
		return target == pagination.ErrMalformedResponse
	}
	return target == pagination.ErrTransport
}

// classifyStatus maps a non-2xx status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}
