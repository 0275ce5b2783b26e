// Package apperr holds the error taxonomy shared by the store, the entitlement
// core and the HTTP layer. Every typed error matches exactly one sentinel via
// errors.Is, and KindOf reduces any error to the name callers branch on.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the classification reported to callers.
type Kind string

const (
	KindValidation             Kind = "ValidationError"
	KindInvalidTransition      Kind = "InvalidTransition"
	KindUniqueness             Kind = "UniquenessViolation"
	KindNotFound               Kind = "NotFound"
	KindConcurrentModification Kind = "ConcurrentModification"
	KindImmutableRecord        Kind = "ImmutableRecord"
	KindForbidden              Kind = "Forbidden"
	KindBadRequest             Kind = "BadRequest"
	KindInternal               Kind = "Internal"
)

var (
	ErrValidation             = errors.New("validation error")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrUniqueness             = errors.New("uniqueness violation")
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrImmutableRecord        = errors.New("immutable record")
	ErrForbidden              = errors.New("forbidden")
	ErrBadRequest             = errors.New("bad request")
)

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field   string
	Message string
}

func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransitionError carries the current and attempted status of a rejected
// lifecycle move.
type TransitionError struct {
	Current   string
	Attempted string
}

func InvalidTransition(current, attempted string) *TransitionError {
	return &TransitionError{Current: current, Attempted: attempted}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Attempted)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// UniquenessError reports a duplicate value. ConflictingID is zero when the
// conflicting row could not be resolved.
type UniquenessError struct {
	Field         string
	Value         string
	ConflictingID uint
}

func (e *UniquenessError) Error() string {
	if e.ConflictingID == 0 {
		return fmt.Sprintf("%s %q is already in use", e.Field, e.Value)
	}
	return fmt.Sprintf("%s %q is already in use by service %d", e.Field, e.Value, e.ConflictingID)
}

func (e *UniquenessError) Is(target error) bool { return target == ErrUniqueness }

type NotFoundError struct {
	Entity string
	ID     uint
}

func NotFound(entity string, id uint) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConcurrentModificationError is returned to the later of two writers racing
// on the same row. The core never retries on its own.
type ConcurrentModificationError struct {
	Entity string
	ID     uint
}

func ConcurrentModification(entity string, id uint) *ConcurrentModificationError {
	return &ConcurrentModificationError{Entity: entity, ID: id}
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently", e.Entity, e.ID)
}

func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

type ImmutableRecordError struct {
	Entity string
	ID     uint
	Status string
}

func ImmutableRecord(entity string, id uint, status string) *ImmutableRecordError {
	return &ImmutableRecordError{Entity: entity, ID: id, Status: status}
}

func (e *ImmutableRecordError) Error() string {
	return fmt.Sprintf("%s %d is %s and can no longer be changed", e.Entity, e.ID, e.Status)
}

func (e *ImmutableRecordError) Is(target error) bool { return target == ErrImmutableRecord }

type ForbiddenError struct {
	Action string
}

func Forbidden(action string) *ForbiddenError {
	return &ForbiddenError{Action: action}
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("not allowed to %s", e.Action)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// BadRequest marks a structurally invalid request, e.g. an empty batch.
func BadRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// KindOf classifies err. Errors outside the taxonomy are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrUniqueness):
		return KindUniqueness
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConcurrentModification):
		return KindConcurrentModification
	case errors.Is(err, ErrImmutableRecord):
		return KindImmutableRecord
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	default:
		return KindInternal
	}
}
