// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

// Password policy applied to every newly chosen password.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 255
	MaxEmailLength    = 254
)

var (
	emailRules = []validation.Rule{
		validation.Required,
		validation.Length(3, MaxEmailLength),
		is.Email,
	}
	newPasswordRules = []validation.Rule{
		validation.Required,
		validation.Length(MinPasswordLength, MaxPasswordLength),
	}
	// Existing passwords predate the current policy, so only presence and
	// an upper bound are checked.
	currentPasswordRules = []validation.Rule{
		validation.Required,
		validation.Length(1, MaxPasswordLength),
	}
	tokenRules = []validation.Rule{
		validation.Required,
		validation.Length(2*OneTimeTokenBytes, 2*OneTimeTokenBytes),
		is.Hexadecimal,
	}
)

// RegisterRequest carries the fields for Service.Register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the request against the account and password policy.
func (r RegisterRequest) Validate() error {
	return invalidRequest("register", validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
		validation.Field(&r.Password, newPasswordRules...),
	))
}

// LoginRequest carries the fields for Service.Login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the request.
func (r LoginRequest) Validate() error {
	return invalidRequest("login", validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
		validation.Field(&r.Password, currentPasswordRules...),
	))
}

// VerifyRequest carries the fields for Service.Verify.
type VerifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// Validate checks the request.
func (r VerifyRequest) Validate() error {
	return invalidRequest("verify", validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
		validation.Field(&r.Token, tokenRules...),
	))
}

// ResendVerificationRequest carries the fields for Service.ResendVerification.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// Validate checks the request.
func (r ResendVerificationRequest) Validate() error {
	return invalidRequest("resend_verification", validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
	))
}

// PasswordResetRequest carries the fields for Service.RequestPasswordReset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// Validate checks the request.
func (r PasswordResetRequest) Validate() error {
	return invalidRequest("request_password_reset", validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
	))
}

// ResetPasswordRequest carries the fields for Service.ResetPassword.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Validate checks the request.
func (r ResetPasswordRequest) Validate() error {
	return invalidRequest("reset_password", validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
		validation.Field(&r.Token, tokenRules...),
		validation.Field(&r.NewPassword, newPasswordRules...),
	))
}

// ChangePasswordRequest carries the fields for Service.ChangePassword.
type ChangePasswordRequest struct {
	SessionToken string `json:"-"`
	OldPassword  string `json:"oldPassword"`
	NewPassword  string `json:"newPassword"`
}

// Validate checks the request. A missing session token is reported as an
// invalid session rather than a validation failure.
func (r ChangePasswordRequest) Validate() error {
	if r.SessionToken == "" {
		return invalidSession("empty")
	}
	return invalidRequest("change_password", validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, currentPasswordRules...),
		validation.Field(&r.NewPassword, newPasswordRules...),
	))
}

func invalidRequest(request string, err error) error {
	if err == nil {
		return nil
	}
	return oops.Code(CodeInvalidRequest).
		With("request", request).
		Wrapf(ErrValidation, "invalid %s request: %s", request, err.Error())
}
