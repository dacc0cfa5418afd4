package domain

import "fmt"

// Kind classifies application errors at the boundary of the engine; it maps
// to HTTP status codes and to the orchestrator's retriable/terminal split.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindServiceUnavailable Kind = "service_unavailable"
	KindBadRequest         Kind = "bad_request"
	KindInternal           Kind = "internal"
)

// Error is the engine's single application error type; Kind drives both
// HTTP status mapping and orchestrator retry classification.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a kinded error with no wrapped cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a kinded error wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, defaulting
// to KindInternal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return KindInternal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Sentinel venue/adapter error kinds.
const (
	KindUnavailable      Kind = "unavailable"
	KindTimeout          Kind = "timeout"
	KindProtocolError    Kind = "protocol_error"
	KindSlippageExceeded Kind = "slippage_exceeded"
	KindNoQuotes         Kind = "no_quotes_available"
	KindTerminalState    Kind = "terminal_state"
	KindOrderNotFound    Kind = "order_not_found"
	KindInvalidOrder     Kind = "invalid_order"
)

// Retriable reports whether an orchestrator-classified error kind should
// trigger a queue retry.
func Retriable(kind Kind) bool {
	switch kind {
	case KindUnavailable, KindTimeout, KindProtocolError, KindSlippageExceeded, KindNoQuotes:
		return true
	default:
		return false
	}
}
