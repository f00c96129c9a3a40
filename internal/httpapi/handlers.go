// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/holomush/accountd/internal/auth"
)

// accountResponse is the public view of an account. The password hash is
// never serialized.
type accountResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"isActive"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newAccountResponse(a *auth.Account) accountResponse {
	return accountResponse{
		ID:          a.ID.String(),
		Email:       a.Email,
		IsActive:    a.IsActive,
		ActivatedAt: a.ActivatedAt,
		CreatedAt:   a.CreatedAt,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// bind decodes the JSON body into req, answering 400 when it cannot.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Error:     "invalid request body",
			Code:      auth.CodeInvalidRequest,
			RequestID: c.GetString(keyRequestID),
		})
		return false
	}
	return true
}

func (a *API) register(c *gin.Context) {
	var req auth.RegisterRequest
	if !bind(c, &req) {
		return
	}
	account, err := a.svc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAccountResponse(account))
}

func (a *API) login(c *gin.Context) {
	var req auth.LoginRequest
	if !bind(c, &req) {
		return
	}
	token, err := a.svc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Header(HeaderAuthToken, token)
	c.JSON(http.StatusOK, loginResponse{Token: token})
}

func (a *API) verify(c *gin.Context) {
	var req auth.VerifyRequest
	if !bind(c, &req) {
		return
	}
	if err := a.svc.Verify(c.Request.Context(), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "account verified"})
}

func (a *API) resendVerification(c *gin.Context) {
	var req auth.ResendVerificationRequest
	if !bind(c, &req) {
		return
	}
	if err := a.svc.ResendVerification(c.Request.Context(), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "verification token sent"})
}

func (a *API) requestPasswordReset(c *gin.Context) {
	var req auth.PasswordResetRequest
	if !bind(c, &req) {
		return
	}
	if err := a.svc.RequestPasswordReset(c.Request.Context(), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "password reset token sent"})
}

func (a *API) resetPassword(c *gin.Context) {
	var req auth.ResetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := a.svc.ResetPassword(c.Request.Context(), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "password reset"})
}

func (a *API) changePassword(c *gin.Context) {
	var req auth.ChangePasswordRequest
	if !bind(c, &req) {
		return
	}
	req.SessionToken = c.GetString(keySessionToken)
	if err := a.svc.ChangePassword(c.Request.Context(), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "password changed"})
}

func (a *API) me(c *gin.Context) {
	account, err := a.svc.Account(c.Request.Context(), c.GetString(keySessionToken))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAccountResponse(account))
}
