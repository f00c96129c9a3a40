// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"crypto/subtle"

	"github.com/samber/oops"
)

// RequestPasswordReset issues a password reset token for an existing account.
func (s *Service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) (err error) {
	defer s.observe("request_password_reset", s.now(), &err)

	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return err
	}

	account, err := s.accountByEmail(ctx, req.Email, "AUTH_RESET_REQUEST_FAILED")
	if err != nil {
		return err
	}

	var token string
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var issueErr error
		token, issueErr = s.issueToken(ctx, account.ID, PurposePasswordReset, s.now())
		return issueErr
	})
	if err != nil {
		return err
	}

	s.deliver(ctx, account, token, PurposePasswordReset)
	return nil
}

// ResetPassword replaces the password of the account owning a reset token.
// Reusing the current password is rejected and leaves the token intact.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (err error) {
	defer s.observe("reset_password", s.now(), &err)

	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return err
	}

	token, err := s.findToken(ctx, req.Token, PurposePasswordReset, "AUTH_RESET_FAILED")
	if err != nil {
		return err
	}

	account, err := s.accountByEmail(ctx, req.Email, "AUTH_RESET_FAILED")
	if err != nil {
		return err
	}
	if token.AccountID != account.ID {
		return tokenMismatch(account)
	}

	same, err := s.hasher.Verify(req.NewPassword, account.PasswordHash)
	if err != nil {
		return oops.Code("AUTH_RESET_FAILED").
			With("operation", "compare with current password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if same {
		return oops.Code(CodePasswordReuse).
			With("account_id", account.ID.String()).
			Wrapf(ErrPolicyViolation, "new password must differ from the current password")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return oops.Code("AUTH_RESET_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.consumeToken(ctx, token, "AUTH_RESET_FAILED"); err != nil {
			return err
		}
		return s.replaceHash(ctx, account, hash, "AUTH_RESET_FAILED")
	})
}

// ChangePassword replaces the password of the session's account after
// checking the old password. Identical old and new passwords are rejected
// before any storage access.
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) (err error) {
	defer s.observe("change_password", s.now(), &err)

	if err := req.Validate(); err != nil {
		return err
	}

	accountID, err := s.sessions.Verify(req.SessionToken)
	if err != nil {
		return err //nolint:wrapcheck // already an AUTH_INVALID_SESSION error
	}

	if subtle.ConstantTimeCompare([]byte(req.OldPassword), []byte(req.NewPassword)) == 1 {
		return oops.Code(CodeSamePassword).
			With("account_id", accountID.String()).
			Wrapf(ErrPolicyViolation, "new password must differ from the old password")
	}

	account, err := s.accountByID(ctx, accountID)
	if err != nil {
		return err
	}

	valid, err := s.hasher.Verify(req.OldPassword, account.PasswordHash)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "verify old password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if !valid {
		return oops.Code(CodeWrongOldPassword).
			With("account_id", account.ID.String()).
			Wrapf(ErrUnauthorized, "old password is incorrect")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	return s.replaceHash(ctx, account, hash, "AUTH_CHANGE_PASSWORD_FAILED")
}

// replaceHash swaps the hash the caller checked for newHash. A concurrent
// password change in between fails with AUTH_PASSWORD_CHANGED.
func (s *Service) replaceHash(ctx context.Context, account *Account, newHash, failCode string) error {
	now := s.now()
	err := s.accounts.ReplacePasswordHash(ctx, account.ID, account.PasswordHash, newHash, now)
	if errors.Is(err, ErrStale) {
		return oops.Code(CodePasswordChanged).
			With("account_id", account.ID.String()).
			Wrapf(ErrConflict, "password was changed concurrently")
	}
	if err != nil {
		return oops.Code(failCode).
			With("operation", "update password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	account.SetPasswordHash(newHash, now)
	return nil
}
