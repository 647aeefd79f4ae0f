package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuth      = errors.New("authentication failed")
	ErrOperation = errors.New("cart operation failed")
	ErrFetch     = errors.New("cart fetch failed")
)

// AuthError reports a failed login, a rejected or missing token, or a
// transport failure while authenticating.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	return describe(ErrAuth, e.Reason, e.Err)
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

func (e *AuthError) Unwrap() error { return e.Err }

// OperationError reports a cart mutation the remote authority did not accept.
type OperationError struct {
	Op     string
	Reason string
	Err    error
}

func (e *OperationError) Error() string {
	return describe(fmt.Errorf("%w: %s", ErrOperation, e.Op), e.Reason, e.Err)
}

func (e *OperationError) Is(target error) bool { return target == ErrOperation }

func (e *OperationError) Unwrap() error { return e.Err }

// FetchError reports a failed cart refresh. The last known snapshot is kept.
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	return describe(ErrFetch, e.Reason, e.Err)
}

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

func (e *FetchError) Unwrap() error { return e.Err }

func describe(kind error, reason string, cause error) string {
	switch {
	case reason != "":
		return fmt.Sprintf("%v: %s", kind, reason)
	case cause != nil:
		return fmt.Sprintf("%v: %v", kind, cause)
	default:
		return kind.Error()
	}
}

// ReasonOf returns the human-readable message the remote authority attached
// to err, or "" when there is none.
func ReasonOf(err error) string {
	var r interface{ RemoteReason() string }
	if errors.As(err, &r) {
		return r.RemoteReason()
	}
	return ""
}
