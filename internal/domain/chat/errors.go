package chat

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures. Each kind carries a stable
// user-facing message that never exposes technical detail.
type Kind int

const (
	// KindValidation covers malformed or out-of-bounds input.
	KindValidation Kind = iota
	// KindRateLimited means the user exceeded the request quota.
	KindRateLimited
	// KindServiceUnavailable means a downstream dependency is down or
	// its circuit breaker is open.
	KindServiceUnavailable
	// KindConfiguration means the service itself is misconfigured,
	// for example a missing or rejected API key.
	KindConfiguration
	// KindToolExecution means a tool failed while running.
	KindToolExecution
	// KindBusy means the upstream model is throttling us.
	KindBusy
	// KindMalformed means an upstream response could not be parsed.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindConfiguration:
		return "configuration"
	case KindToolExecution:
		return "tool_execution"
	case KindBusy:
		return "busy"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error carries a machine-facing cause alongside the message shown to
// the end user. The technical detail never leaks into responses.
type Error struct {
	Kind    Kind
	Detail  string // technical, for logs
	UserMsg string // shown to the user; empty means use the kind default
	Err     error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the user-facing message. Wrap sites rarely set
// UserMsg themselves, so the chain is walked for the first non-empty
// one before falling back to the outermost kind's default.
func (e *Error) UserMessage() string {
	for err := error(e); err != nil; {
		var ce *Error
		if !errors.As(err, &ce) {
			break
		}
		if ce.UserMsg != "" {
			return ce.UserMsg
		}
		err = ce.Err
	}
	switch e.Kind {
	case KindValidation:
		return "Your message could not be processed. Please check it and try again."
	case KindRateLimited:
		return "You're sending messages too quickly. Please wait a moment and try again."
	case KindServiceUnavailable:
		return "The assistant is temporarily unavailable. Please try again in a few moments."
	case KindConfiguration:
		return "The assistant is not configured correctly. Please contact support if this persists."
	case KindToolExecution:
		return "I ran into a problem looking that up. Please try again."
	case KindBusy:
		return "The assistant is handling a lot of requests right now. Please try again shortly."
	case KindMalformed:
		return "I received an unexpected reply from the assistant service. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// NewError builds an Error of the given kind.
func NewError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WrapError builds an Error of the given kind around a cause.
func WrapError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// ErrKind extracts the Kind from err, or ok=false when err is not a
// pipeline Error.
func ErrKind(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
