// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/auth/postgres"
)

// capturingNotifier keeps the last token sent per purpose.
type capturingNotifier struct {
	mu     sync.Mutex
	tokens map[auth.Purpose]string
}

func (n *capturingNotifier) SendToken(_ context.Context, _ string, token string, purpose auth.Purpose) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.tokens == nil {
		n.tokens = make(map[auth.Purpose]string)
	}
	n.tokens[purpose] = token
	return nil
}

func (n *capturingNotifier) last(purpose auth.Purpose) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[purpose]
}

func newService(t *testing.T) (*auth.Service, *capturingNotifier) {
	t.Helper()
	sessions, err := auth.NewJWTIssuer(auth.SessionConfig{
		Secret: []byte("integration-secret-integration-secret"),
		Issuer: "accountd-test",
	})
	require.NoError(t, err)

	notifier := &capturingNotifier{}
	svc, err := auth.NewService(auth.Deps{
		Accounts: postgres.NewAccountRepository(testPool),
		Tokens:   postgres.NewTokenRepository(testPool),
		Hasher:   auth.NewArgon2idHasher(),
		Sessions: sessions,
		Notifier: notifier,
		Tx:       postgres.NewTransactor(testPool),
	})
	require.NoError(t, err)
	return svc, notifier
}

func TestService_AccountLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newService(t)
	const email = "lifecycle@example.com"
	t.Cleanup(func() {
		_, _ = testPool.Exec(context.Background(), `DELETE FROM accounts WHERE email = $1`, email)
	})

	account, err := svc.Register(ctx, auth.RegisterRequest{Email: "Lifecycle@Example.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, email, account.Email)

	_, err = svc.Register(ctx, auth.RegisterRequest{Email: email, Password: "Secret123!"})
	assert.Equal(t, auth.KindConflict, auth.KindOf(err))

	require.NoError(t, svc.Verify(ctx, auth.VerifyRequest{Email: email, Token: notifier.last(auth.PurposeVerification)}))
	err = svc.Verify(ctx, auth.VerifyRequest{Email: email, Token: notifier.last(auth.PurposeVerification)})
	assert.Equal(t, auth.KindNotFound, auth.KindOf(err))

	require.NoError(t, svc.RequestPasswordReset(ctx, auth.PasswordResetRequest{Email: email}))
	reset := notifier.last(auth.PurposePasswordReset)

	err = svc.ResetPassword(ctx, auth.ResetPasswordRequest{Email: email, Token: reset, NewPassword: "Secret123!"})
	assert.Equal(t, auth.KindPolicyViolation, auth.KindOf(err))

	require.NoError(t, svc.ResetPassword(ctx, auth.ResetPasswordRequest{Email: email, Token: reset, NewPassword: "Changed456!"}))

	session, err := svc.Login(ctx, auth.LoginRequest{Email: email, Password: "Changed456!"})
	require.NoError(t, err)

	me, err := svc.Account(ctx, session)
	require.NoError(t, err)
	assert.True(t, me.IsActive)

	require.NoError(t, svc.ChangePassword(ctx, auth.ChangePasswordRequest{
		SessionToken: session,
		OldPassword:  "Changed456!",
		NewPassword:  "Final789!",
	}))
	_, err = svc.Login(ctx, auth.LoginRequest{Email: email, Password: "Final789!"})
	assert.NoError(t, err)
}

func TestService_ConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	const email = "concurrent@example.com"
	t.Cleanup(func() {
		_, _ = testPool.Exec(context.Background(), `DELETE FROM accounts WHERE email = $1`, email)
	})

	const workers = 5
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, auth.RegisterRequest{Email: email, Password: "Secret123!"})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, auth.KindConflict, auth.KindOf(err), "unexpected failure: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var tokens int
	require.NoError(t, testPool.QueryRow(ctx, `
		SELECT COUNT(*) FROM one_time_tokens t JOIN accounts a ON a.id = t.account_id
		WHERE a.email = $1
	`, email).Scan(&tokens))
	assert.Equal(t, 1, tokens, "losing registrations leave no tokens behind")
}
