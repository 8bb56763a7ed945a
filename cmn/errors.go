// Package cmn holds the engine's shared error vocabulary, ported from
// original_source/machines/errors.py. Every sentinel wraps via
// github.com/pkg/errors so call sites can attach stack traces and callers
// can still match with errors.Is.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the engine's well-known fault categories.
type Kind string

const (
	KindTargetAlreadyExists Kind = "TargetAlreadyExists"
	KindTargetDoesNotExist  Kind = "TargetDoesNotExist"
	KindTargetIsLocked      Kind = "TargetIsLocked"
	KindInvalidTarget       Kind = "InvalidTarget"
	KindParameterError      Kind = "ParameterError"
	KindReject              Kind = "RejectException"
	KindExpected            Kind = "ExpectedError"
)

// Error is the concrete type behind every sentinel below; Kind lets callers
// branch on fault category without string matching the message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func newErr(kind Kind, format string, args ...any) error {
	return errors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// TargetAlreadyExists reports a write against an existing target with no
// write mode (or mode "unset").
func TargetAlreadyExists(target string) error {
	return newErr(KindTargetAlreadyExists, "target already exists: %s", target)
}

// TargetDoesNotExist reports a read/remove against an absent target.
func TargetDoesNotExist(target string) error {
	return newErr(KindTargetDoesNotExist, "target does not exist: %s", target)
}

// TargetIsLocked reports a write/remove against a locked name.
func TargetIsLocked(name string) error {
	return newErr(KindTargetIsLocked, "target name is locked: %s", name)
}

// InvalidTarget reports a target the storage's path converter cannot
// represent.
func InvalidTarget(target string, reason error) error {
	return newErr(KindInvalidTarget, "invalid target %s: %v", target, reason)
}

// ParameterError reports a parameter value failing its type or constraint.
func ParameterError(name string, reason error) error {
	return newErr(KindParameterError, "parameter %q: %v", name, reason)
}

// Reject wraps a user function's deliberate rejection of its own task; the
// owning task transitions to REJECTED rather than ERROR.
func Reject(reason string) error {
	return newErr(KindReject, "%s", reason)
}

// Expected wraps a user function's anticipated failure; the owning task
// transitions to ERROR with a clean message and no captured traceback.
func Expected(reason string) error {
	return newErr(KindExpected, "%s", reason)
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
