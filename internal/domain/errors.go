package domain

import (
	"errors"
	"fmt"
)

// ErrorKind tags a failure so callers can react to it without string matching.
type ErrorKind string

const (
	KindNotFound             ErrorKind = "NotFound"
	KindInactiveUser         ErrorKind = "InactiveUser"
	KindUnavailable          ErrorKind = "Unavailable"
	KindDuplicateActiveLoan  ErrorKind = "DuplicateActiveLoan"
	KindLoanLimitExceeded    ErrorKind = "LoanLimitExceeded"
	KindAlreadyReturned      ErrorKind = "AlreadyReturned"
	KindOverdueNotExtendable ErrorKind = "OverdueNotExtendable"
	KindAlreadyExtended      ErrorKind = "AlreadyExtended"
	KindInvariantViolation   ErrorKind = "InvariantViolation"
	KindTransient            ErrorKind = "Transient"
	KindInvalidArgument      ErrorKind = "InvalidArgument"
	KindConflict             ErrorKind = "Conflict"
	KindUnauthenticated      ErrorKind = "Unauthenticated"
	KindPermissionDenied     ErrorKind = "PermissionDenied"
	KindInternal             ErrorKind = "Internal"
)

// Error is the typed failure returned across package boundaries.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Expected reports whether the error is an ordinary refusal of a request
// rather than a fault of the system.
func (e *Error) Expected() bool {
	switch e.Kind {
	case KindInternal, KindInvariantViolation, KindTransient:
		return false
	}
	return true
}

var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInactiveUser         = &Error{Kind: KindInactiveUser}
	ErrUnavailable          = &Error{Kind: KindUnavailable}
	ErrDuplicateActiveLoan  = &Error{Kind: KindDuplicateActiveLoan}
	ErrLoanLimitExceeded    = &Error{Kind: KindLoanLimitExceeded}
	ErrAlreadyReturned      = &Error{Kind: KindAlreadyReturned}
	ErrOverdueNotExtendable = &Error{Kind: KindOverdueNotExtendable}
	ErrAlreadyExtended      = &Error{Kind: KindAlreadyExtended}
	ErrInvariantViolation   = &Error{Kind: KindInvariantViolation}
	ErrTransient            = &Error{Kind: KindTransient}
	ErrInvalidArgument      = &Error{Kind: KindInvalidArgument}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated}
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
)

// NewError builds a typed error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError tags err with kind, keeping it reachable through errors.Unwrap.
func WrapError(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable message of a typed error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	if KindOf(err) == KindInternal {
		return "internal error"
	}
	return err.Error()
}

// IsRetryable reports whether err is a transient storage conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
