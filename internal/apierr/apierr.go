// Package apierr defines the closed error taxonomy shared by every
// component, and leaves HTTP-status mapping to the API layer.
package apierr

import "errors"

// Kind identifies which bucket of the error taxonomy an error belongs to.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindInvalidTransition  Kind = "invalid_transition"
	KindAlreadyTerminal    Kind = "already_terminal"
	KindNotCompleted       Kind = "not_completed"
	KindTooManyJobs        Kind = "too_many_jobs"
	KindAlreadyDownloading Kind = "already_downloading"
	KindInternal           Kind = "internal_error"
)

// Error wraps a cause with a taxonomy Kind the API layer maps to a status.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
