// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements the account credential and token lifecycle.
//
// # Domain Types
//
//   - Account - a registered identity. Its state moves one way, from
//     StateUnverified to StateActive, through Account.Activate.
//   - OneTimeToken - a single-use, purpose-tagged token. Only its SHA-256
//     hash is stored.
//   - Session tokens are stateless HS256 JWTs minted by a SessionIssuer.
//
// # Services
//
// Service orchestrates registration, login, verification, resend, password
// reset and password change over the AccountRepository, TokenRepository,
// PasswordHasher and SessionIssuer it is built with. Failures wrap one of
// ErrValidation, ErrConflict, ErrNotFound, ErrUnauthorized or
// ErrPolicyViolation; KindOf classifies them, and anything else is internal.
//
// Sweeper removes expired one-time tokens in the background of a daemon.
package auth
