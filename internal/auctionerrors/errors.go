package auctionerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so the transport layer can pick a status
// code without inspecting message text.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindIneligible
	KindBidTooLow
	KindForbidden
)

// Error is a domain error with a stable kind and a caller-safe message.
// Internal errors keep the underlying cause for logging but the message shown
// to callers never includes storage error text.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Ineligible(format string, args ...interface{}) *Error {
	return &Error{Kind: KindIneligible, Message: fmt.Sprintf(format, args...)}
}

func BidTooLow(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBidTooLow, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a storage or infrastructure failure. The caller-facing
// message is generic; err carries the detail for operator logs.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "an unexpected error occurred, please try again", Err: err}
}

// KindOf returns the kind of err, or KindInternal for anything that is not a
// domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsValidation reports whether err is a pre-mutation validation rejection,
// which must never be retried.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindInvalidState, KindIneligible, KindBidTooLow, KindForbidden:
		return true
	}
	return false
}
