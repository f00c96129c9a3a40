// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Verify activates the account that owns a verification token. The token is
// consumed only after the owner and state checks pass.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (err error) {
	defer s.observe("verify", s.now(), &err)

	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return err
	}

	token, err := s.findToken(ctx, req.Token, PurposeVerification, "AUTH_VERIFY_FAILED")
	if err != nil {
		return err
	}

	account, err := s.accountByEmail(ctx, req.Email, "AUTH_VERIFY_FAILED")
	if err != nil {
		return err
	}

	if token.AccountID != account.ID {
		return tokenMismatch(account)
	}

	now := s.now()
	if err := account.Activate(now); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.consumeToken(ctx, token, "AUTH_VERIFY_FAILED"); err != nil {
			return err
		}
		if err := s.accounts.Activate(ctx, account.ID, now); err != nil {
			if errors.Is(err, ErrStale) {
				return oops.Code(CodeAlreadyVerified).
					With("account_id", account.ID.String()).
					Wrapf(ErrConflict, "account already verified")
			}
			return oops.Code("AUTH_VERIFY_FAILED").
				With("operation", "activate account").
				With("account_id", account.ID.String()).
				Wrap(err)
		}
		return nil
	})
}

// ResendVerification issues a fresh verification token for an unverified
// account. Earlier verification tokens stop working.
func (s *Service) ResendVerification(ctx context.Context, req ResendVerificationRequest) (err error) {
	defer s.observe("resend_verification", s.now(), &err)

	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return err
	}

	account, err := s.accountByEmail(ctx, req.Email, "AUTH_RESEND_FAILED")
	if err != nil {
		return err
	}
	if !CanTransition(account.State(), StateActive) {
		return oops.Code(CodeAlreadyVerified).
			With("account_id", account.ID.String()).
			Wrapf(ErrConflict, "account already verified")
	}

	var token string
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var issueErr error
		token, issueErr = s.issueToken(ctx, account.ID, PurposeVerification, s.now())
		return issueErr
	})
	if err != nil {
		return err
	}

	s.deliver(ctx, account, token, PurposeVerification)
	return nil
}

func tokenMismatch(account *Account) error {
	return oops.Code(CodeTokenMismatch).
		With("account_id", account.ID.String()).
		Wrapf(ErrUnauthorized, "token does not belong to this account")
}
