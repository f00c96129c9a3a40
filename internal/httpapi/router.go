// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the account service as a JSON API under /api/user.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/holomush/accountd/internal/auth"
)

// MaxBodyBytes caps request bodies. Every request is a handful of short fields.
const MaxBodyBytes = 64 << 10

// AuthService is the account service surface the API calls. *auth.Service
// satisfies it.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Account, error)
	Login(ctx context.Context, req auth.LoginRequest) (string, error)
	Account(ctx context.Context, sessionToken string) (*auth.Account, error)
	Verify(ctx context.Context, req auth.VerifyRequest) error
	ResendVerification(ctx context.Context, req auth.ResendVerificationRequest) error
	RequestPasswordReset(ctx context.Context, req auth.PasswordResetRequest) error
	ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error
	ChangePassword(ctx context.Context, req auth.ChangePasswordRequest) error
}

// RequestObserver receives the outcome of every HTTP request.
// *observability.Metrics satisfies it.
type RequestObserver interface {
	ObserveRequest(method, route string, status int)
}

// API holds the handlers and their collaborators.
type API struct {
	svc      AuthService
	logger   *slog.Logger
	observer RequestObserver
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithObserver sets the request metrics sink.
func WithObserver(observer RequestObserver) Option {
	return func(a *API) { a.observer = observer }
}

// NewRouter builds the gin engine serving the account API.
func NewRouter(svc AuthService, opts ...Option) *gin.Engine {
	a := &API{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		requestIDMiddleware(),
		a.accessLogMiddleware(),
		gin.CustomRecovery(a.recoverPanic),
		bodySizeLimiter(MaxBodyBytes),
	)
	router.NoRoute(func(c *gin.Context) {
		abortWithMessage(c, http.StatusNotFound, "route not found")
	})
	router.NoMethod(func(c *gin.Context) {
		abortWithMessage(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	users := router.Group("/api/user")
	{
		// POST /api/user/register			-> creates an unverified account
		users.POST("/register", a.register)

		// POST /api/user/login				-> issues a session token
		users.POST("/login", a.login)

		// POST /api/user/verify			-> activates an account
		users.POST("/verify", a.verify)

		// POST /api/user/resend-verification-token	-> replaces the verification token
		users.POST("/resend-verification-token", a.resendVerification)

		// POST /api/user/send-password-reset-token	-> issues a reset token
		users.POST("/send-password-reset-token", a.requestPasswordReset)

		// POST /api/user/password-reset		-> sets a new password with a reset token
		users.POST("/password-reset", a.resetPassword)

		// POST /api/user/change-password		-> sets a new password for the session's account
		users.POST("/change-password", requireSession(), a.changePassword)

		// GET /api/user/me				-> returns the session's account
		users.GET("/me", requireSession(), a.me)
	}

	return router
}
