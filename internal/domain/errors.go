package domain

import (
	"errors"
	"fmt"
)

// Kind is the stable classification of a surfaced failure.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindPermissionDenied  Kind = "permission_denied"
	KindRateLimited       Kind = "rate_limited"
	KindCircuitOpen       Kind = "circuit_open"
	KindNotOwner          Kind = "not_owner"
	KindInvalidTransition Kind = "invalid_transition"
	KindUpstream          Kind = "upstream"
)

// Error carries a stable kind and an optional remediation hint alongside the
// message. All failures surfaced by this module are *Error values, possibly
// wrapped.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// E builds an Error with the given kind.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithHint attaches a remediation hint and returns the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// KindOf extracts the stable kind from err, looking through wrapping.
// Errors that are not *Error report KindUpstream.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUpstream
}

// HintOf extracts the remediation hint, if any.
func HintOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Hint
	}
	return ""
}
