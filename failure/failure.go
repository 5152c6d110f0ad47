package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a harness failure.
type Kind string

const (
	KindNone                   Kind = ""
	KindTimeoutExceeded        Kind = "timeout_exceeded"
	KindReadinessTimeout       Kind = "readiness_timeout"
	KindElementNotFound        Kind = "element_not_found"
	KindElementNotInteractable Kind = "element_not_interactable"
	KindAssertionFailed        Kind = "assertion_failed"
	KindCancelled              Kind = "cancelled"
	KindNavigationFailed       Kind = "navigation_failed"
	KindUncaughtException      Kind = "uncaught_exception"
	KindInvalidConfiguration   Kind = "invalid_configuration"
)

var (
	// ErrTimeoutExceeded matches any failure of kind timeout_exceeded.
	ErrTimeoutExceeded = errors.New("timeout exceeded")

	// ErrReadinessTimeout matches any failure of kind readiness_timeout.
	ErrReadinessTimeout = errors.New("readiness timeout")

	// ErrElementNotFound matches any failure of kind element_not_found.
	ErrElementNotFound = errors.New("element not found")

	// ErrElementNotInteractable matches any failure of kind element_not_interactable.
	ErrElementNotInteractable = errors.New("element not interactable")

	// ErrAssertionFailed matches any failure of kind assertion_failed.
	ErrAssertionFailed = errors.New("assertion failed")

	// ErrCancelled matches any failure of kind cancelled.
	ErrCancelled = errors.New("cancelled")

	// ErrNavigationFailed matches any failure of kind navigation_failed.
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrUncaughtException matches any failure of kind uncaught_exception.
	ErrUncaughtException = errors.New("uncaught exception")

	// ErrInvalidConfiguration matches any failure of kind invalid_configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

var sentinels = map[Kind]error{
	KindTimeoutExceeded:        ErrTimeoutExceeded,
	KindReadinessTimeout:       ErrReadinessTimeout,
	KindElementNotFound:        ErrElementNotFound,
	KindElementNotInteractable: ErrElementNotInteractable,
	KindAssertionFailed:        ErrAssertionFailed,
	KindCancelled:              ErrCancelled,
	KindNavigationFailed:       ErrNavigationFailed,
	KindUncaughtException:      ErrUncaughtException,
	KindInvalidConfiguration:   ErrInvalidConfiguration,
}

// IsValid checks if the kind is a known failure kind.
func (k Kind) IsValid() bool {
	_, ok := sentinels[k]
	return ok
}

// IsRetryable reports whether a failure of this kind may be absorbed by a
// scenario-level retry. Nothing inside the harness retries on it.
func (k Kind) IsRetryable() bool {
	switch k {
	case KindTimeoutExceeded, KindReadinessTimeout, KindElementNotFound, KindElementNotInteractable, KindNavigationFailed:
		return true
	default:
		return false
	}
}

// Error is a classified harness failure.
type Error struct {
	Kind Kind
	// Signal names the readiness signal that stalled, for readiness_timeout.
	Signal string
	Detail string
	// Err is the last underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Signal != "" {
		msg = fmt.Sprintf("%s(%s)", msg, e.Signal)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel, so errors.Is(err, ErrElementNotFound) works.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}

// New creates a failure of the given kind.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap creates a failure of the given kind carrying an underlying error.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// Timeout creates a timeout_exceeded failure.
func Timeout(description string, lastErr error) *Error {
	return &Error{Kind: KindTimeoutExceeded, Detail: description, Err: lastErr}
}

// Readiness creates a readiness_timeout failure for the named signal.
func Readiness(signal string, cause error) *Error {
	return &Error{Kind: KindReadinessTimeout, Signal: signal, Err: cause}
}

// Assertion creates an assertion_failed failure.
func Assertion(detail string) *Error {
	return &Error{Kind: KindAssertionFailed, Detail: detail}
}

// Invalid creates an invalid_configuration failure for a wait, action or
// placeholder that could never succeed.
func Invalid(detail string, err error) *Error {
	return &Error{Kind: KindInvalidConfiguration, Detail: detail, Err: err}
}

// Cancelled creates a cancelled failure wrapping the context error.
func Cancelled(cause error) *Error {
	return &Error{Kind: KindCancelled, Err: cause}
}

// KindOf classifies an arbitrary error. Context cancellation and deadline
// errors are reported as cancelled since they originate from the caller.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindNone
}

// SignalOf returns the stalled readiness signal name carried by err, if any.
func SignalOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Signal
	}
	return ""
}
