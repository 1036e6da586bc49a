package lifecycle

import (
	"fmt"
	"strings"
)

// ValidationError reports input that breaks structural or business rules.
// Messages are user-readable and safe to show as-is.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// IllegalTransitionError reports a state change the state machine does not
// allow. Rule names the violated rule in user-readable form.
type IllegalTransitionError struct {
	Entity string
	From   string
	Action string
	Rule   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in state %s: %s", e.Action, e.Entity, e.From, e.Rule)
}

// CapacityConflictError reports a confirmation that lost the race for the
// last seat. The caller should re-read and retry against the waitlist.
type CapacityConflictError struct {
	EventID   string
	Capacity  int
	Confirmed int
}

func (e *CapacityConflictError) Error() string {
	return fmt.Sprintf("event %s is full (%d of %d seats confirmed)", e.EventID, e.Confirmed, e.Capacity)
}

// CollaboratorError wraps a failed call to persistence or another external
// collaborator. No partial state is left behind when one is returned.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func illegal(entity string, from any, action any, rule string) *IllegalTransitionError {
	return &IllegalTransitionError{
		Entity: entity,
		From:   fmt.Sprint(from),
		Action: fmt.Sprint(action),
		Rule:   rule,
	}
}
