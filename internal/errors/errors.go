package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common error types for the console
var (
	// Transport errors
	ErrNetworkUnavailable = errors.New("network unavailable")

	// Session errors
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrSessionSuperseded = errors.New("session changed while the request was in flight")

	// Authorization errors (derived client-side, never sent to the server)
	ErrNotAuthorized = errors.New("not authorized")

	// List errors
	ErrNoDefaultGroup = errors.New("no group available to scope the request")
	ErrItemNotFound   = errors.New("item not found in list")
	ErrInvalidStatus  = errors.New("invalid status transition")

	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// RemoteRejectedError is returned when the remote API answered with a
// non-success status. Message is the server's human readable message and is
// shown to the user verbatim.
type RemoteRejectedError struct {
	StatusCode int
	Message    string
}

func (e *RemoteRejectedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return strings.ToLower(text)
	}
	return fmt.Sprintf("request rejected with status %d", e.StatusCode)
}

// Unauthenticated reports whether the server rejected the bearer token.
func (e *RemoteRejectedError) Unauthenticated() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NetworkError wraps a transport failure where no response was obtained.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrNetworkUnavailable, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetworkUnavailable, e.Err}
}

// NotAuthorizedError names what the identity was missing.
type NotAuthorizedError struct {
	Capability string
	Roles      []string
}

func (e *NotAuthorizedError) Error() string {
	switch {
	case e.Capability != "":
		return fmt.Sprintf("%s: missing capability %q", ErrNotAuthorized, e.Capability)
	case len(e.Roles) > 0:
		return fmt.Sprintf("%s: requires role %s", ErrNotAuthorized, strings.Join(e.Roles, " or "))
	default:
		return ErrNotAuthorized.Error()
	}
}

func (e *NotAuthorizedError) Unwrap() error {
	return ErrNotAuthorized
}

// Network builds a NetworkError. Context cancellation and deadlines are
// treated as "no response obtained".
func Network(op string, err error) error {
	if err == nil {
		return nil
	}
	return &NetworkError{Op: op, Err: err}
}

// IsRemoteRejected reports whether err carries a RemoteRejectedError.
func IsRemoteRejected(err error) bool {
	var rr *RemoteRejectedError
	return errors.As(err, &rr)
}

func IsNetworkUnavailable(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable)
}

// IsTimeout reports whether a network failure was caused by a deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// UserMessage renders err for display. Remote rejections show the server's
// message only, everything else its full chain.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var rr *RemoteRejectedError
	if errors.As(err, &rr) {
		return rr.Error()
	}
	if IsNetworkUnavailable(err) {
		return "The server could not be reached. Check your connection and try again."
	}
	return err.Error()
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single import.
func New(text string) error {
	return errors.New(text)
}
