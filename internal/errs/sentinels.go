// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the request clashes with existing state (duplicate identity, self-follow).
	ErrConflict = errors.New("conflict")

	// ErrInvalid indicates malformed or missing input.
	ErrInvalid = errors.New("invalid input")

	// ErrUnauthorized indicates failed authentication (missing, invalid, expired or superseded token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller that may not perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrUpstream indicates a failure of an external collaborator (mail, image storage).
	ErrUpstream = errors.New("upstream failure")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrInternal marks a failure that is reported as a server error with a specific message.
	ErrInternal = errors.New("internal")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")
)

// Error is a classified failure carrying a message that is safe to show to clients.
type Error struct {
	Kind error
	Msg  string
	Err  error // optional cause, never shown to clients
}

// E builds a classified error.
func E(kind error, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Wrap builds a classified error that keeps the underlying cause.
func Wrap(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Message returns the client-facing message of err, or fallback when err is not classified.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}

// Duplicate reports a unique violation on the named field ("username", "email").
type Duplicate struct{ Field string }

func (d *Duplicate) Error() string { return d.Field + " already exists" }

// Unwrap classifies Duplicate as ErrAlreadyExists.
func (d *Duplicate) Unwrap() error { return ErrAlreadyExists }
