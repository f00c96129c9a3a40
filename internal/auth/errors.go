// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// Storage sentinels returned by repository implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")

	// ErrStale is returned when a conditional update finds the row no longer
	// in the state the caller read.
	ErrStale = errors.New("stale")
)

// Failure classes surfaced by Service operations. Every domain failure wraps
// exactly one of these; anything else is treated as KindInternal.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrPolicyViolation = errors.New("policy violation")
)

// Error codes attached to Service failures.
const (
	CodeInvalidRequest     = "AUTH_INVALID_REQUEST"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountInactive    = "AUTH_ACCOUNT_INACTIVE"
	CodeAccountNotFound    = "AUTH_ACCOUNT_NOT_FOUND"
	CodeTokenNotFound      = "AUTH_TOKEN_NOT_FOUND"
	CodeTokenMismatch      = "AUTH_TOKEN_MISMATCH"
	CodeAlreadyVerified    = "AUTH_ALREADY_VERIFIED"
	CodePasswordReuse      = "AUTH_PASSWORD_REUSE"
	CodeSamePassword       = "AUTH_SAME_PASSWORD"
	CodeWrongOldPassword   = "AUTH_WRONG_OLD_PASSWORD"
	CodeInvalidSession     = "AUTH_INVALID_SESSION"
	CodePasswordChanged    = "AUTH_PASSWORD_CHANGED"
)

// ErrorKind classifies a failure for callers such as the transport layer.
type ErrorKind int

// Error kinds, in the order KindOf checks them.
const (
	KindNone ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindPolicyViolation
	KindInternal
)

var kindNames = map[ErrorKind]string{
	KindNone:            "ok",
	KindValidation:      "validation",
	KindConflict:        "conflict",
	KindNotFound:        "not_found",
	KindUnauthorized:    "unauthorized",
	KindPolicyViolation: "policy_violation",
	KindInternal:        "internal",
}

// String returns the snake_case name used in logs and metric labels.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf classifies err. A nil error is KindNone.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrPolicyViolation):
		return KindPolicyViolation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
