package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound = errors.New("tenant not found")
)

// NotFoundError is returned when a referenced resource does not exist
// within a tenant. Recoverable: list resources of the same kind.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// UnknownStateError is returned when a target state does not belong to the
// variant's transition graph at all.
type UnknownStateError struct {
	DocType DocumentType
	State   Status
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("state %q is not defined for %s documents", e.State, e.DocType)
}

// IllegalTransitionError is returned when no path exists from the current
// state to the target. Allowed lists the states directly reachable from
// Current so the caller can pick a legal next step.
type IllegalTransitionError struct {
	DocType DocumentType
	Current Status
	Target  Status
	Allowed []Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("no legal transition from %q to %q for %s (allowed next: %v)",
		e.Current, e.Target, e.DocType, e.Allowed)
}

// PaymentRequiredError is returned when a transition into PAID lacks a
// positive amount or a bank account reference.
type PaymentRequiredError struct {
	Missing string
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("transition to PAID requires payment details: missing %s", e.Missing)
}

// ValidationRejectedError carries a failed validation result across the
// write path. The structured result holds every field-level finding.
type ValidationRejectedError struct {
	Result ValidationResult
}

func (e *ValidationRejectedError) Error() string {
	return fmt.Sprintf("payload rejected with %d validation error(s)", len(e.Result.Errors))
}

// UnknownConditionError is returned when a chaos activation names a
// condition outside the supported enumeration.
type UnknownConditionError struct {
	Condition ChaosCondition
}

func (e *UnknownConditionError) Error() string {
	return fmt.Sprintf("unknown chaos condition %q", e.Condition)
}

// SimulatedFaultError is injected by the chaos simulator. Fatal to the
// current call; recoverable by clearing the simulation.
type SimulatedFaultError struct {
	Condition  ChaosCondition
	StatusCode int
}

func (e *SimulatedFaultError) Error() string {
	return fmt.Sprintf("simulated %s fault (status %d)", e.Condition, e.StatusCode)
}

// PartialTransitionError reports a multi-step transition that failed after
// prior steps already committed. Completed is the path prefix actually
// persisted; the document remains in the last committed state. No
// compensating rollback is performed.
type PartialTransitionError struct {
	Completed []Status
	Failed    Status
	Err       error
}

func (e *PartialTransitionError) Error() string {
	return fmt.Sprintf("transition stopped at %q after committing %v: %v", e.Failed, e.Completed, e.Err)
}

func (e *PartialTransitionError) Unwrap() error { return e.Err }
