package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the categories callers branch on.
type Kind int

const (
	// KindUnknown is the zero value; treated as a store error.
	KindUnknown Kind = iota

	// KindUnauthenticated means no caller identity could be resolved.
	KindUnauthenticated

	// KindForbidden means the caller is not allowed to act on the resource.
	KindForbidden

	// KindNotFound means the report or line does not exist.
	KindNotFound

	// KindValidation means the request failed a precondition check. Nothing
	// was written.
	KindValidation

	// KindTimeout means a store call exceeded its deadline.
	KindTimeout

	// KindConflict means a guarded update lost a race with a concurrent
	// writer; the caller should re-read and retry.
	KindConflict

	// KindStore means the underlying store failed for any other reason.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindTimeout:
		return "timeout"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is a classified error with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the classification of err, walking the wrap chain.
// Unclassified errors report KindStore.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// MessageOf returns the stable user-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
