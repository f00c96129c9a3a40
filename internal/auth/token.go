// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// OneTimeTokenBytes is the entropy of a one-time token (64 hex chars).
const OneTimeTokenBytes = 32

// Purpose tags what a one-time token authorizes.
type Purpose string

// Token purposes.
const (
	PurposeVerification  Purpose = "verification"
	PurposePasswordReset Purpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeVerification || p == PurposePasswordReset
}

// OneTimeToken is a persisted single-use token. Only the SHA-256 hash of the
// value is stored; the plaintext goes to the notification sink.
type OneTimeToken struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	Purpose   Purpose
	TokenHash string
	CreatedAt time.Time
}

// NewOneTimeToken creates a validated OneTimeToken record.
func NewOneTimeToken(accountID ulid.ULID, purpose Purpose, tokenHash string, now time.Time) (*OneTimeToken, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("TOKEN_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if !purpose.Valid() {
		return nil, oops.Code("TOKEN_INVALID_PURPOSE").With("purpose", string(purpose)).Errorf("unknown token purpose")
	}
	if tokenHash == "" {
		return nil, oops.Code("TOKEN_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	return &OneTimeToken{
		ID:        ulid.Make(),
		AccountID: accountID,
		Purpose:   purpose,
		TokenHash: tokenHash,
		CreatedAt: now,
	}, nil
}

// IsExpiredAt reports whether the token is older than ttl at the given time.
// A zero ttl never expires.
func (t *OneTimeToken) IsExpiredAt(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(t.CreatedAt) > ttl
}

// GenerateOneTimeToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
func GenerateOneTimeToken() (token, hash string, err error) {
	tokenBytes := make([]byte, OneTimeTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", OneTimeTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken computes the SHA256 hash of a one-time token value.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenRepository manages one-time token persistence.
type TokenRepository interface {
	// Insert stores a new token.
	Insert(ctx context.Context, token *OneTimeToken) error

	// FindByHash looks a token up without consuming it.
	// Returns ErrNotFound if no token with that hash and purpose exists.
	FindByHash(ctx context.Context, tokenHash string, purpose Purpose) (*OneTimeToken, error)

	// Consume atomically deletes and returns the token. Of several concurrent
	// callers exactly one succeeds; the rest get ErrNotFound.
	Consume(ctx context.Context, tokenHash string, purpose Purpose) (*OneTimeToken, error)

	// DeleteByAccount removes every token of the given purpose for an account.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID, purpose Purpose) (int64, error)

	// DeleteExpired removes tokens of the given purpose created before cutoff.
	DeleteExpired(ctx context.Context, purpose Purpose, cutoff time.Time) (int64, error)
}
