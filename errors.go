package grantkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for GrantKit operations.
//
// The business-rule taxonomy is deliberately flat: every guard violation
// surfaces as ErrPermissionDenied with a human-readable reason. Callers
// catch one error kind and inspect the message for display only, never for
// control flow. Storage faults are a separate kind and may be retried.
var (
	// ErrPermissionDenied is returned for every business-rule violation:
	// insufficient privilege, sole-owner protection, double undo, inactive
	// entities, self-escalation, and so on.
	ErrPermissionDenied = errors.New("grantkit: permission denied")

	// ErrNotFound is returned when a referenced record or membership
	// request does not exist.
	ErrNotFound = errors.New("grantkit: not found")

	// ErrInvalidPrivilege is returned when a privilege level is outside the
	// defined ordering or not grantable in the requested relation.
	ErrInvalidPrivilege = errors.New("grantkit: invalid privilege")

	// ErrInvalidRelation is returned when a relation identifier is not one
	// of the six defined pairs.
	ErrInvalidRelation = errors.New("grantkit: invalid relation")

	// ErrNoActorID is returned when a mutating call finds no actor ID in
	// context to record as the grantor.
	ErrNoActorID = errors.New("grantkit: no actor ID in context")

	// ErrStorage is returned when the underlying store fails. Unlike guard
	// violations these may be transient; callers should retry with backoff.
	ErrStorage = errors.New("grantkit: storage error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err       error     // Underlying sentinel error
	Message   string    // Additional context
	Relation  Relation  // Relation involved
	ActorID   string    // Privilege holder involved (if applicable)
	TargetID  string    // Target entity involved (if applicable)
	GrantorID string    // Grantor who triggered the error (if applicable)
	Privilege Privilege // Privilege level involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithRelation adds relation information to the error.
func (e *Error) WithRelation(rel Relation) *Error {
	e.Relation = rel
	return e
}

// WithActor adds the privilege holder to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// WithTarget adds the target entity to the error.
func (e *Error) WithTarget(targetID string) *Error {
	e.TargetID = targetID
	return e
}

// WithGrantor adds the grantor to the error.
func (e *Error) WithGrantor(grantorID string) *Error {
	e.GrantorID = grantorID
	return e
}

// WithPrivilege adds the privilege level to the error.
func (e *Error) WithPrivilege(p Privilege) *Error {
	e.Privilege = p
	return e
}

// IsPermissionDenied checks if an error is a guard-rule violation.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsNotFound checks if an error is due to a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStorage checks if an error came from the underlying store.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// denied builds a permission-denied error with a reason string.
func denied(reason string) *Error {
	return NewError(ErrPermissionDenied, reason)
}
