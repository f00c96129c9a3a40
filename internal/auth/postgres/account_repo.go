// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/auth"
)

const accountColumns = `id, email, password_hash, is_active, activated_at, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Insert stores a new account. A taken email returns auth.ErrDuplicate.
func (r *AccountRepository) Insert(ctx context.Context, account *auth.Account) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.IsActive,
		account.ActivatedAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_DUPLICATE").
			With("id", account.ID.String()).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("id", account.ID.String()).
			Wrap(err)
	}
	return nil
}

// FindByID retrieves an account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// FindByEmail retrieves an account by its normalized email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return account, nil
}

// Activate marks an unverified account active. Only the activation columns
// are written, so a concurrent password change is preserved.
func (r *AccountRepository) Activate(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET
			is_active = TRUE,
			activated_at = $2,
			updated_at = $2
		WHERE id = $1 AND NOT is_active
	`, id.String(), at)
	if err != nil {
		return oops.Code("ACCOUNT_ACTIVATE_FAILED").
			With("operation", "activate account").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return r.missingOrStale(ctx, id, "activate account")
	}
	return nil
}

// ReplacePasswordHash swaps oldHash for newHash. The WHERE clause makes the
// write conditional on the hash the caller verified against.
func (r *AccountRepository) ReplacePasswordHash(ctx context.Context, id ulid.ULID, oldHash, newHash string, at time.Time) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET
			password_hash = $3,
			updated_at = $4
		WHERE id = $1 AND password_hash = $2
	`, id.String(), oldHash, newHash, at)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "replace password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return r.missingOrStale(ctx, id, "replace password hash")
	}
	return nil
}

// missingOrStale explains a conditional update that matched no row.
func (r *AccountRepository) missingOrStale(ctx context.Context, id ulid.ULID, operation string) error {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)
	`, id.String()).Scan(&exists)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", operation).
			With("id", id.String()).
			Wrap(err)
	}
	if !exists {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return oops.Code("ACCOUNT_STALE").
		With("operation", operation).
		With("id", id.String()).
		Wrap(auth.ErrStale)
}

// scanAccount scans a single row into an Account. Scan errors, including
// pgx.ErrNoRows, are returned as is for the caller to classify.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr       string
		email       string
		hash        string
		isActive    bool
		activatedAt *time.Time
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(&idStr, &email, &hash, &isActive, &activatedAt, &createdAt, &updatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.Account{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		IsActive:     isActive,
		ActivatedAt:  activatedAt,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
