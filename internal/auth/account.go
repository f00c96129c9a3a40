// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AccountState is the activation state of an account.
type AccountState string

// Account states. The only transition is Unverified -> Active.
const (
	StateUnverified AccountState = "unverified"
	StateActive     AccountState = "active"
)

// transitions lists the states reachable from each state.
var transitions = map[AccountState][]AccountState{
	StateUnverified: {StateActive},
	StateActive:     {},
}

// CanTransition reports whether an account may move from one state to another.
func CanTransition(from, to AccountState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Account is a registered identity with credentials and activation state.
type Account struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	IsActive     bool
	ActivatedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates an unverified Account for a normalized email and an
// already computed password hash.
func NewAccount(email, passwordHash string, now time.Time) (*Account, error) {
	if email == "" {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return &Account{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// State returns the account's position in the activation lifecycle.
func (a *Account) State() AccountState {
	if a.IsActive {
		return StateActive
	}
	return StateUnverified
}

// Activate moves the account from Unverified to Active. Activation is
// one-way; activating an active account fails with AUTH_ALREADY_VERIFIED.
func (a *Account) Activate(now time.Time) error {
	if !CanTransition(a.State(), StateActive) {
		return oops.Code(CodeAlreadyVerified).
			With("account_id", a.ID.String()).
			Wrapf(ErrConflict, "account already verified")
	}
	a.IsActive = true
	a.ActivatedAt = &now
	a.UpdatedAt = now
	return nil
}

// SetPasswordHash replaces the stored hash. Allowed in every state.
func (a *Account) SetPasswordHash(hash string, now time.Time) {
	a.PasswordHash = hash
	a.UpdatedAt = now
}

// NormalizeEmail trims and lower-cases an email so lookups and the
// uniqueness constraint agree on a single spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Insert stores a new account. Returns ErrDuplicate if the email is taken.
	Insert(ctx context.Context, account *Account) error

	// FindByID retrieves an account by ID.
	FindByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// FindByEmail retrieves an account by normalized email.
	// Returns ErrNotFound if no account has the given email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Activate marks an unverified account active as of at. Returns ErrStale
	// if the account is already active and ErrNotFound if it does not exist.
	Activate(ctx context.Context, id ulid.ULID, at time.Time) error

	// ReplacePasswordHash stores newHash only while the current hash is still
	// oldHash. Returns ErrStale if the hash changed since it was read and
	// ErrNotFound if the account does not exist.
	ReplacePasswordHash(ctx context.Context, id ulid.ULID, oldHash, newHash string, at time.Time) error
}
