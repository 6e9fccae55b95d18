package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Class is the failure classification for a provider call. It decides
// how the orchestrator reacts: NotFound is expected and skipped,
// Transient may be retried, Permanent is skipped for the rest of the
// run and logged.
type Class string

const (
	// ClassNotFound means the source has no data for the query.
	ClassNotFound Class = "not_found"

	// ClassTransient covers timeouts, 5xx responses and rate limiting (429).
	ClassTransient Class = "transient"

	// ClassPermanent covers auth failures (401/403), missing API keys
	// and malformed response bodies. Not retried within a run.
	ClassPermanent Class = "permanent"
)

// FetchError is the error a provider adapter returns for any failed fetch.
type FetchError struct {
	Provider   ID
	Class      Class
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s error (status %d): %s: %v",
			e.Provider, e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s error (status %d): %s",
		e.Provider, e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFound builds the expected no-data error for a provider.
func NotFound(p ID) *FetchError {
	return &FetchError{Provider: p, Class: ClassNotFound, Message: "no data for query"}
}

// Permanent builds a non-retriable error for a provider.
func Permanent(p ID, msg string, err error) *FetchError {
	return &FetchError{Provider: p, Class: ClassPermanent, Message: msg, Err: err}
}

// Transient builds a retriable error for a provider.
func Transient(p ID, msg string, err error) *FetchError {
	return &FetchError{Provider: p, Class: ClassTransient, Message: msg, Err: err}
}

// ClassifyStatus maps an HTTP status code to a failure class.
// 404 is the expected "no data" case; 429 and 5xx are worth retrying;
// the remaining 4xx codes mean our request or credentials are wrong.
func ClassifyStatus(code int) Class {
	switch {
	case code == http.StatusNotFound:
		return ClassNotFound
	case code == http.StatusTooManyRequests:
		return ClassTransient
	case code >= 500:
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// ClassOf extracts the failure class from err, or "" if err is not a
// provider failure (for example a context cancellation).
func ClassOf(err error) Class {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ""
}

// IsNotFound reports whether err is an expected no-data result.
func IsNotFound(err error) bool { return ClassOf(err) == ClassNotFound }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool { return ClassOf(err) == ClassTransient }

// IsPermanent reports whether err should skip the provider for this run.
func IsPermanent(err error) bool { return ClassOf(err) == ClassPermanent }

// classifyNetErr wraps a transport-level error. Cancellation is passed
// through untouched so callers can distinguish an aborted run from a
// misbehaving provider; everything else (timeouts, connection resets)
// is transient.
func classifyNetErr(p ID, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return Transient(p, "request failed", err)
}
