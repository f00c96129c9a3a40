// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accountd/pkg/errutil"
)

// Default one-time token lifetimes.
const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultResetTTL        = time.Hour
)

// Notifier delivers a one-time token out of band. Delivery is best effort:
// a failure is logged and never undoes the issuance.
type Notifier interface {
	SendToken(ctx context.Context, email, token string, purpose Purpose) error
}

// OperationRecorder receives the outcome of every Service operation.
type OperationRecorder interface {
	ObserveOperation(operation string, kind ErrorKind, elapsed time.Duration)
}

// Deps are the collaborators a Service needs. Notifier and Tx are optional.
type Deps struct {
	Accounts AccountRepository
	Tokens   TokenRepository
	Hasher   PasswordHasher
	Sessions SessionIssuer
	Notifier Notifier
	Tx       Transactor
}

// Policy holds the tunable lifecycle rules.
type Policy struct {
	// VerificationTTL bounds the age of verification tokens. Zero disables expiry.
	VerificationTTL time.Duration
	// ResetTTL bounds the age of password reset tokens. Zero disables expiry.
	ResetTTL time.Duration
	// RequireActiveLogin rejects logins for accounts that are not yet verified.
	RequireActiveLogin bool
	// AllowedEmailDomains restricts registration to matching email domains.
	// Empty allows every domain. See DomainMatcher for the pattern syntax.
	AllowedEmailDomains []string
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		VerificationTTL: DefaultVerificationTTL,
		ResetTTL:        DefaultResetTTL,
	}
}

// TTL returns the configured lifetime for a token purpose.
func (p Policy) TTL(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeVerification:
		return p.VerificationTTL
	case PurposePasswordReset:
		return p.ResetTTL
	default:
		return 0
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPolicy replaces the default Policy.
func WithPolicy(policy Policy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithRecorder sets the operation recorder.
func WithRecorder(recorder OperationRecorder) Option {
	return func(s *Service) { s.recorder = recorder }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service implements account registration, login, verification and the
// password reset and change flows.
type Service struct {
	accounts AccountRepository
	tokens   TokenRepository
	hasher   PasswordHasher
	sessions SessionIssuer
	notifier Notifier
	tx       Transactor
	policy   Policy
	domains  *DomainMatcher
	recorder OperationRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. Returns an error if a required dependency is nil.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	if deps.Accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if deps.Tokens == nil {
		return nil, oops.Errorf("token repository is required")
	}
	if deps.Hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if deps.Sessions == nil {
		return nil, oops.Errorf("session issuer is required")
	}

	s := &Service{
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		hasher:   deps.Hasher,
		sessions: deps.Sessions,
		notifier: deps.Notifier,
		tx:       deps.Tx,
		policy:   DefaultPolicy(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	if s.tx == nil {
		s.tx = NoTx
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Errorf("logger cannot be nil")
	}
	if s.policy.VerificationTTL < 0 || s.policy.ResetTTL < 0 {
		return nil, oops.Errorf("token ttl cannot be negative")
	}
	domains, err := NewDomainMatcher(s.policy.AllowedEmailDomains)
	if err != nil {
		return nil, err
	}
	s.domains = domains
	return s, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates an unverified account and issues its verification token.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (account *Account, err error) {
	defer s.observe("register", s.now(), &err)

	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.domains.Allows(req.Email) {
		return nil, oops.Code(CodeEmailDomainNotAllowed).
			With("email", req.Email).
			Wrapf(ErrPolicyViolation, "email domain is not allowed to register")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	now := s.now()
	account, err = NewAccount(req.Email, hash, now)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "new account").
			Wrap(err)
	}

	var token string
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if insertErr := s.accounts.Insert(ctx, account); insertErr != nil {
			if errors.Is(insertErr, ErrDuplicate) {
				return oops.Code(CodeEmailTaken).Wrapf(ErrConflict, "email already registered")
			}
			return oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "insert account").
				Wrap(insertErr)
		}
		var issueErr error
		token, issueErr = s.issueToken(ctx, account.ID, PurposeVerification, now)
		return issueErr
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, account, token, PurposeVerification)
	return account, nil
}

// Login checks credentials and issues a session token. An unknown email and
// a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (token string, err error) {
	defer s.observe("login", s.now(), &err)

	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return "", err
	}

	account, lookupErr := s.accounts.FindByEmail(ctx, req.Email)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	targetHash := dummyPasswordHash
	accountExists := false
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
		accountExists = true
	case !errors.Is(lookupErr, ErrNotFound):
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find account by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(req.Password, targetHash)
	if verifyErr != nil {
		if !accountExists {
			return "", invalidCredentials()
		}
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID.String()).
			Wrap(verifyErr)
	}
	if !accountExists || !valid {
		return "", invalidCredentials()
	}

	if s.policy.RequireActiveLogin && !account.IsActive {
		return "", oops.Code(CodeAccountInactive).
			With("account_id", account.ID.String()).
			Wrapf(ErrUnauthorized, "account is not verified")
	}

	s.upgradeHash(ctx, account, req.Password)

	token, err = s.sessions.Issue(account.ID)
	if err != nil {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session token").
			Wrap(err)
	}
	return token, nil
}

// Account resolves a session token to the account it was issued for.
func (s *Service) Account(ctx context.Context, sessionToken string) (account *Account, err error) {
	defer s.observe("account", s.now(), &err)
	return s.sessionAccount(ctx, sessionToken)
}

func (s *Service) sessionAccount(ctx context.Context, sessionToken string) (*Account, error) {
	accountID, err := s.sessions.Verify(sessionToken)
	if err != nil {
		return nil, err //nolint:wrapcheck // already an AUTH_INVALID_SESSION error
	}
	return s.accountByID(ctx, accountID)
}

func (s *Service) accountByID(ctx context.Context, accountID ulid.ULID) (*Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeInvalidSession).
				With("reason", "account_missing").
				With("account_id", accountID.String()).
				Wrapf(ErrUnauthorized, "invalid session")
		}
		return nil, oops.Code("AUTH_ACCOUNT_LOOKUP_FAILED").
			With("operation", "find account by id").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return account, nil
}

// accountByEmail finds an account, mapping absence to AUTH_ACCOUNT_NOT_FOUND.
func (s *Service) accountByEmail(ctx context.Context, email, failCode string) (*Account, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeAccountNotFound).Wrapf(ErrNotFound, "account not found")
		}
		return nil, oops.Code(failCode).
			With("operation", "find account by email").
			Wrap(err)
	}
	return account, nil
}

// upgradeHash rehashes a password stored with an outdated scheme. Failures
// are logged; the login still succeeds.
func (s *Service) upgradeHash(ctx context.Context, account *Account, password string) {
	if !s.hasher.NeedsUpgrade(account.PasswordHash) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort hash upgrade failed",
			"operation", "upgrade_hash",
			"account_id", account.ID.String(),
			"error", err)
		return
	}
	now := s.now()
	err = s.accounts.ReplacePasswordHash(ctx, account.ID, account.PasswordHash, newHash, now)
	switch {
	case errors.Is(err, ErrStale):
		s.logger.DebugContext(ctx, "hash upgrade skipped, password changed concurrently",
			"operation", "upgrade_hash",
			"account_id", account.ID.String())
	case err != nil:
		s.logger.WarnContext(ctx, "best-effort hash upgrade failed",
			"operation", "upgrade_hash",
			"account_id", account.ID.String(),
			"error", err)
	default:
		account.SetPasswordHash(newHash, now)
	}
}

// issueToken replaces any live token of the same purpose with a fresh one
// and returns its plaintext value.
func (s *Service) issueToken(ctx context.Context, accountID ulid.ULID, purpose Purpose, now time.Time) (string, error) {
	if _, err := s.tokens.DeleteByAccount(ctx, accountID, purpose); err != nil {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "delete previous tokens").
			With("purpose", string(purpose)).
			Wrap(err)
	}

	value, hash, err := GenerateOneTimeToken()
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	record, err := NewOneTimeToken(accountID, purpose, hash, now)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "new token").
			Wrap(err)
	}

	if err := s.tokens.Insert(ctx, record); err != nil {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "insert token").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return value, nil
}

// findToken looks up a live token without consuming it. Missing, expired and
// already consumed tokens are indistinguishable to the caller.
func (s *Service) findToken(ctx context.Context, value string, purpose Purpose, failCode string) (*OneTimeToken, error) {
	token, err := s.tokens.FindByHash(ctx, HashToken(value), purpose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, tokenNotFound()
		}
		return nil, oops.Code(failCode).
			With("operation", "find token").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	if token.IsExpiredAt(s.policy.TTL(purpose), s.now()) {
		return nil, tokenNotFound()
	}
	return token, nil
}

// consumeToken deletes a token found earlier by findToken. Losing a race to
// another consumer reports the token as not found.
func (s *Service) consumeToken(ctx context.Context, token *OneTimeToken, failCode string) error {
	if _, err := s.tokens.Consume(ctx, token.TokenHash, token.Purpose); err != nil {
		if errors.Is(err, ErrNotFound) {
			return tokenNotFound()
		}
		return oops.Code(failCode).
			With("operation", "consume token").
			With("purpose", string(token.Purpose)).
			Wrap(err)
	}
	return nil
}

// deliver hands a token to the notifier. Delivery never fails the operation.
func (s *Service) deliver(ctx context.Context, account *Account, token string, purpose Purpose) {
	if s.notifier == nil {
		s.logger.DebugContext(ctx, "no notifier configured, token not delivered",
			"account_id", account.ID.String(),
			"purpose", string(purpose))
		return
	}
	if err := s.notifier.SendToken(ctx, account.Email, token, purpose); err != nil {
		s.logger.WarnContext(ctx, "best-effort token delivery failed",
			"operation", "send_token",
			"account_id", account.ID.String(),
			"purpose", string(purpose),
			"error", err)
	}
}

// observe records the outcome of an operation and logs internal failures.
func (s *Service) observe(operation string, start time.Time, errp *error) {
	kind := KindOf(*errp)
	if kind == KindInternal {
		errutil.LogError(s.logger.With("operation", operation), "auth operation failed", *errp)
	}
	if s.recorder != nil {
		s.recorder.ObserveOperation(operation, kind, s.now().Sub(start))
	}
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrapf(ErrUnauthorized, "invalid email or password")
}

func tokenNotFound() error {
	return oops.Code(CodeTokenNotFound).Wrapf(ErrNotFound, "invalid or expired token")
}
