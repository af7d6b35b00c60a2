package access

import (
	"errors"
	"fmt"
)

// FailureKind names the reason for a denied decision.
type FailureKind int

const (
	// FailureNone accompanies allowed decisions.
	FailureNone FailureKind = iota
	// Unauthenticated means no principal is attached to the request.
	Unauthenticated
	// Forbidden means the principal lacks the role or ownership required.
	Forbidden
	// NotFound means the referenced resource does not exist.
	NotFound
	// SelfActionForbidden blocks destructive actions a principal aims at itself.
	SelfActionForbidden
	// InvalidReference means the resource id is malformed.
	InvalidReference
)

// String returns the stable name used in logs and metrics.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case SelfActionForbidden:
		return "self_action_forbidden"
	case InvalidReference:
		return "invalid_reference"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Decision is the allow/deny outcome of an access check.
type Decision struct {
	Allowed bool
	Reason  FailureKind
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with reason.
func Deny(reason FailureKind) Decision {
	return Decision{Reason: reason}
}

// String renders the decision for logs.
func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return "deny:" + d.Reason.String()
}

var (
	// ErrStoreUnavailable marks failures that prevent a decision from being made.
	ErrStoreUnavailable = errors.New("access: store unavailable")
	// ErrResourceNotFound is returned by ContentStore implementations for missing records.
	ErrResourceNotFound = errors.New("access: resource not found")
)

// StoreError wraps a persistence failure encountered while resolving ownership.
type StoreError struct {
	Kind Kind
	ID   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("access: resolve %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
