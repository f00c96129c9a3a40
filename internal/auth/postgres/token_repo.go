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

const tokenColumns = `id, account_id, purpose, token_hash, created_at`

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool poolIface
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool poolIface) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Insert stores a new one-time token.
func (r *TokenRepository) Insert(ctx context.Context, token *auth.OneTimeToken) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO one_time_tokens (`+tokenColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`,
		token.ID.String(),
		token.AccountID.String(),
		string(token.Purpose),
		token.TokenHash,
		token.CreatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("TOKEN_DUPLICATE").
			With("account_id", token.AccountID.String()).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert token").
			With("account_id", token.AccountID.String()).
			With("purpose", string(token.Purpose)).
			Wrap(err)
	}
	return nil
}

// FindByHash retrieves a token by hash and purpose without consuming it.
func (r *TokenRepository) FindByHash(ctx context.Context, tokenHash string, purpose auth.Purpose) (*auth.OneTimeToken, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM one_time_tokens
		WHERE token_hash = $1 AND purpose = $2
	`, tokenHash, string(purpose))

	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").
			With("purpose", string(purpose)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get token by hash").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return token, nil
}

// Consume deletes a token and returns it. Of several concurrent callers
// only one gets the row; the others get auth.ErrNotFound.
func (r *TokenRepository) Consume(ctx context.Context, tokenHash string, purpose auth.Purpose) (*auth.OneTimeToken, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		DELETE FROM one_time_tokens
		WHERE token_hash = $1 AND purpose = $2
		RETURNING `+tokenColumns,
		tokenHash, string(purpose))

	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").
			With("purpose", string(purpose)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_CONSUME_FAILED").
			With("operation", "consume token").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return token, nil
}

// DeleteByAccount removes every token of a purpose held by an account.
func (r *TokenRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID, purpose auth.Purpose) (int64, error) {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM one_time_tokens
		WHERE account_id = $1 AND purpose = $2
	`, accountID.String(), string(purpose))
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "delete account tokens").
			With("account_id", accountID.String()).
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes tokens of a purpose created before cutoff.
func (r *TokenRepository) DeleteExpired(ctx context.Context, purpose auth.Purpose, cutoff time.Time) (int64, error) {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM one_time_tokens
		WHERE purpose = $1 AND created_at < $2
	`, string(purpose), cutoff)
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired tokens").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanToken scans a single row into a OneTimeToken. Scan errors, including
// pgx.ErrNoRows, are returned as is for the caller to classify.
func scanToken(row pgx.Row) (*auth.OneTimeToken, error) {
	var (
		idStr        string
		accountIDStr string
		purpose      string
		hash         string
		createdAt    time.Time
	)
	if err := row.Scan(&idStr, &accountIDStr, &purpose, &hash, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ID").With("id", idStr).Wrap(err)
	}
	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ACCOUNT_ID").With("account_id", accountIDStr).Wrap(err)
	}

	return &auth.OneTimeToken{
		ID:        id,
		AccountID: accountID,
		Purpose:   auth.Purpose(purpose),
		TokenHash: hash,
		CreatedAt: createdAt,
	}, nil
}

// Compile-time interface check.
var _ auth.TokenRepository = (*TokenRepository)(nil)
