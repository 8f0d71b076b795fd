package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an adapter failure for the session runner's retry
// policy. The kinds and their handling are:
//
//   - AuthFailure: login rejected or credentials expired. Terminal for the
//     session; the runner stops it and tells the user to re-authenticate.
//   - Transient: network timeout, connection reset, or a 5xx response.
//     Retried next cycle and counted toward escalation.
//   - RateLimited: explicit rate-limit signal (403/429). The adapter retries
//     once with an alternate client identity before surfacing this; after
//     that it is counted like Transient.
//   - MalformedResponse: the backend answered but the payload failed
//     structural parsing. Logged and treated as an empty cycle, since it
//     does not indicate backend unavailability.
type ErrorKind int

const (
	AuthFailure ErrorKind = iota
	Transient
	RateLimited
	MalformedResponse
)

// String returns the kind's stable identifier, used in logs and audit events.
func (k ErrorKind) String() string {
	switch k {
	case AuthFailure:
		return "auth_failure"
	case Transient:
		return "transient"
	case RateLimited:
		return "rate_limited"
	case MalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error is the tagged failure an adapter surfaces from a fetch cycle.
type Error struct {
	Kind ErrorKind
	Op   string // short description of the failed operation, e.g. "fetch feed"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a tagged adapter error.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification from an adapter error. Unclassified
// errors are reported as Transient so an unexpected failure mode degrades
// to retry-next-cycle rather than killing the session.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return Transient
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind ErrorKind) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind == kind
	}
	return false
}

// ClassifyStatus maps a non-200 HTTP status to an adapter error.
func ClassifyStatus(op string, status int) *Error {
	switch {
	case status == http.StatusUnauthorized:
		return NewError(AuthFailure, op, fmt.Errorf("HTTP %d", status))
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return NewError(RateLimited, op, fmt.Errorf("HTTP %d", status))
	case status >= 500:
		return NewError(Transient, op, fmt.Errorf("HTTP %d", status))
	default:
		// Unexpected but well-formed response; the backend is reachable,
		// so treat it like a parse problem rather than unavailability.
		return NewError(MalformedResponse, op, fmt.Errorf("unexpected HTTP %d", status))
	}
}

// ClassifyTransport maps a failed round trip (timeout, connection reset,
// canceled context) to an adapter error. These are always Transient.
func ClassifyTransport(op string, err error) *Error {
	return NewError(Transient, op, err)
}
