package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrControlConflict is returned when two controls of one type claim the same method.
	ErrControlConflict = errors.New("control conflict")

	// ErrInvalidControl is returned for a control without methods or without hooks.
	ErrInvalidControl = errors.New("invalid control")

	// ErrUnknownMethod is returned when a wrapper is requested for a method no control claims.
	ErrUnknownMethod = errors.New("method is not controlled")

	// ErrBindingUnavailable is returned by Call.Parameters when the method declared no signature.
	ErrBindingUnavailable = errors.New("parameter binding unavailable")

	// ErrInvalidBinding is returned by Call.Parameters when arguments do not fit the signature.
	ErrInvalidBinding = errors.New("invalid parameter binding")

	// ErrViewNotFound is returned when removing a view that is not registered.
	ErrViewNotFound = errors.New("view not found")

	// ErrNoFrame is returned when buffered events are requested with no transaction frame open.
	ErrNoFrame = errors.New("no transaction frame open")

	// ErrRecordNotFound is returned by a journal asked for a sequence number it does not hold.
	ErrRecordNotFound = errors.New("record not found")
)

// ControlConflictError reports two controls claiming the same method name.
type ControlConflictError struct {
	Type   string
	Method string
	First  string
	Second string
}

func (e *ControlConflictError) Error() string {
	return fmt.Sprintf("%s.%s is claimed by controls %q and %q", e.Type, e.Method, e.First, e.Second)
}

func (e *ControlConflictError) Unwrap() error { return ErrControlConflict }

// Phase tells which hook of a control failed.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// HookError wraps a failure raised by a before- or after-hook.
type HookError struct {
	Phase  Phase
	Method string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook of %s failed: %v", e.Phase, e.Method, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// ViewFailure attributes an error to the view that produced it.
type ViewFailure struct {
	View string
	Err  error
}

// ViewError aggregates the view failures of one batch delivery.
type ViewError struct {
	Failures []ViewFailure
}

func (e *ViewError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("view %s failed: %v", e.Failures[0].View, e.Failures[0].Err)
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.View, f.Err)
	}
	return fmt.Sprintf("%d views failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *ViewError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// RollbackError is returned when a rollback's undo function fails.
// The undo failure comes first; the error that triggered the rollback is kept as Cause.
type RollbackError struct {
	Undo  error
	Cause error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback undo failed: %v (rolling back: %v)", e.Undo, e.Cause)
}

func (e *RollbackError) Unwrap() []error { return []error{e.Undo, e.Cause} }

// PanicError carries a value recovered from a panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
