// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSessionSecretBytes is the shortest HS256 secret NewJWTIssuer accepts.
const MinSessionSecretBytes = 32

// SessionIssuer mints and checks stateless session tokens.
type SessionIssuer interface {
	// Issue returns a signed token asserting accountID.
	Issue(accountID ulid.ULID) (string, error)

	// Verify returns the account ID asserted by a token, or an
	// AUTH_INVALID_SESSION error wrapping ErrUnauthorized.
	Verify(token string) (ulid.ULID, error)
}

// SessionConfig configures a JWTIssuer.
type SessionConfig struct {
	// Secret signs and verifies every token. Rotating it revokes all sessions.
	Secret []byte
	// Issuer is written to and required in the iss claim when non-empty.
	Issuer string
	// TTL adds an exp claim when positive. Zero issues tokens that stay
	// valid until the secret changes.
	TTL time.Duration
}

// JWTIssuer implements SessionIssuer with HS256 JSON Web Tokens.
type JWTIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTIssuer creates a JWTIssuer. The secret is copied.
func NewJWTIssuer(cfg SessionConfig) (*JWTIssuer, error) {
	if len(cfg.Secret) < MinSessionSecretBytes {
		return nil, oops.Code("SESSION_SECRET_TOO_SHORT").
			With("min_bytes", MinSessionSecretBytes).
			Errorf("session secret must be at least %d bytes", MinSessionSecretBytes)
	}
	if cfg.TTL < 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").Errorf("session ttl cannot be negative")
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &JWTIssuer{
		secret: secret,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the issuer reading time from now.
func (j *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	clone := *j
	clone.now = now
	return &clone
}

// Issue signs a token for accountID.
func (j *JWTIssuer) Issue(accountID ulid.ULID) (string, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return "", oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}

	now := j.now()
	claims := jwt.RegisteredClaims{
		Subject:  accountID.String(),
		Issuer:   j.issuer,
		IssuedAt: jwt.NewNumericDate(now),
		ID:       ulid.Make().String(),
	}
	if j.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(j.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify checks the signature and claims of a token.
func (j *JWTIssuer) Verify(token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, invalidSession("empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, oops.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ulid.ULID{}, invalidSession("expired")
		}
		return ulid.ULID{}, invalidSession("malformed")
	}
	if !parsed.Valid {
		return ulid.ULID{}, invalidSession("malformed")
	}

	accountID, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, invalidSession("bad_subject")
	}
	return accountID, nil
}

func invalidSession(reason string) error {
	return oops.Code(CodeInvalidSession).
		With("reason", reason).
		Wrapf(ErrUnauthorized, "invalid session")
}

// Compile-time interface check.
var _ SessionIssuer = (*JWTIssuer)(nil)
