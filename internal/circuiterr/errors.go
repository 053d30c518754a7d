// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package circuiterr defines the structured error values surfaced to callers
// of the evaluator.
//
// Every failure that crosses the sandbox boundary is a single *Error carrying
// a machine-readable Kind and a human-readable message. Validation errors
// additionally name the offending element and property so that callers can
// point the author at the exact declaration.
//
//	err := circuiterr.MissingProperty("resistor", "R1", "resistance")
//	if circuiterr.Is(err, circuiterr.KindValidation) {
//	    // report to the author
//	}
package circuiterr

import (
	"context"
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindValidation marks a graph that violates a structural or property rule.
	KindValidation Kind = "VALIDATION"
	// KindEvaluation marks a syntax or runtime failure in user code.
	KindEvaluation Kind = "EVALUATION"
	// KindTimeout marks a run that exceeded its deadline.
	KindTimeout Kind = "TIMEOUT"
	// KindOverlayMismatch marks a manual edit whose selector could not be
	// resolved unambiguously in strict mode.
	KindOverlayMismatch Kind = "OVERLAY_MISMATCH"
)

// Error is a structured error with a kind and optional cause.
type Error struct {
	Kind     Kind   // Machine-readable category
	Message  string // Human-readable message
	Element  string // Offending element name or ID (optional)
	Property string // Offending property name (optional)
	Cause    error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// MissingProperty reports a mandatory property absent from a declaration.
func MissingProperty(tag, name, property string) *Error {
	return &Error{
		Kind:     KindValidation,
		Message:  fmt.Sprintf("%s %q is missing required property %q", tag, name, property),
		Element:  name,
		Property: property,
	}
}

// InvalidProperty reports a property whose value could not be interpreted.
func InvalidProperty(tag, name, property string, cause error) *Error {
	return &Error{
		Kind:     KindValidation,
		Message:  fmt.Sprintf("%s %q has invalid property %q", tag, name, property),
		Element:  name,
		Property: property,
		Cause:    cause,
	}
}

// Timeout wraps a context error into a KindTimeout error. The cause is kept so
// errors.Is(err, context.DeadlineExceeded) still holds.
func Timeout(cause error, phase string) *Error {
	if cause == nil {
		cause = context.DeadlineExceeded
	}
	return &Error{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("run exceeded its deadline during %s", phase),
		Cause:   cause,
	}
}

// Is reports whether err has the given kind.
// It unwraps the error chain looking for an *Error with a matching kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the kind from an error, if available.
// Returns an empty Kind if the error is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FromContext converts a finished context into a timeout error, or returns
// nil when the context is still live. Plain cancellation is reported as an
// evaluation abort rather than a timeout.
func FromContext(ctx context.Context, phase string) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout(err, phase)
	default:
		return Wrap(KindEvaluation, err, "run aborted during %s", phase)
	}
}

// UserMessage returns the message without the kind prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
