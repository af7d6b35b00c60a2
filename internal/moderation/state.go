// Package moderation implements the comment approval workflow.
package moderation

import (
	"errors"
	"fmt"
	"strings"
)

// State is the approval state of a comment.
type State string

const (
	// StatePending is the state of every new comment.
	StatePending State = "pending"
	// StateApproved comments are publicly visible.
	StateApproved State = "approved"
	// StateRejected comments stay hidden.
	StateRejected State = "rejected"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateApproved, StateRejected:
		return true
	}
	return false
}

// Public reports whether comments in s may appear in public listings.
func (s State) Public() bool {
	return s == StateApproved
}

// Verdict is a moderator decision.
type Verdict string

const (
	// VerdictApprove publishes a comment.
	VerdictApprove Verdict = "approve"
	// VerdictReject hides a comment.
	VerdictReject Verdict = "reject"
)

var (
	// ErrUnknownVerdict is returned for verdicts other than approve or reject.
	ErrUnknownVerdict = errors.New("moderation: unknown verdict")
	// ErrUnknownState is returned when a stored state is not recognised.
	ErrUnknownState = errors.New("moderation: unknown state")
)

// ParseVerdict parses a verdict name.
func ParseVerdict(raw string) (Verdict, error) {
	switch v := Verdict(strings.ToLower(strings.TrimSpace(raw))); v {
	case VerdictApprove, VerdictReject:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVerdict, raw)
}

// Next returns the state a comment moves to when verdict is applied in
// current. Repeating a verdict yields the same state, and a later verdict
// overwrites an earlier one.
func Next(current State, verdict Verdict) (State, error) {
	if !current.Valid() {
		return current, fmt.Errorf("%w: %q", ErrUnknownState, current)
	}
	switch verdict {
	case VerdictApprove:
		return StateApproved, nil
	case VerdictReject:
		return StateRejected, nil
	}
	return current, fmt.Errorf("%w: %q", ErrUnknownVerdict, verdict)
}
