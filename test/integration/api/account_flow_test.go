// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package api_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/accountd/internal/auth"
)

const (
	email       = "alice@example.com"
	password    = "Secret123!"
	newPassword = "NewSecret456!"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPayload struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword,omitempty"`
}

func register() response {
	resp := post("/api/user/register", credentials{email, password})
	Expect(resp.status).To(Equal(http.StatusCreated), resp.raw)
	return resp
}

func login(pw string) response {
	return post("/api/user/login", credentials{email, pw})
}

var _ = Describe("Account lifecycle over HTTP", func() {
	BeforeEach(func() {
		env.reset()
	})

	It("registers, verifies, logs in and changes the password", func() {
		created := register()
		Expect(created.body).To(HaveKeyWithValue("email", email))
		Expect(created.body).To(HaveKeyWithValue("isActive", false))
		Expect(created.raw).NotTo(ContainSubstring("argon2id"))

		verification := env.outbox.last(email, auth.PurposeVerification)
		Expect(verification).To(HaveLen(64))
		Expect(created.raw).NotTo(ContainSubstring(verification))

		resp := post("/api/user/verify", tokenPayload{Email: email, Token: verification})
		Expect(resp.status).To(Equal(http.StatusOK), resp.raw)

		By("refusing to replay the consumed token")
		resp = post("/api/user/verify", tokenPayload{Email: email, Token: verification})
		Expect(resp.status).To(Equal(http.StatusNotFound))
		Expect(resp.body).To(HaveKeyWithValue("code", auth.CodeTokenNotFound))

		resp = login(password)
		Expect(resp.status).To(Equal(http.StatusOK), resp.raw)
		session, ok := resp.body["token"].(string)
		Expect(ok).To(BeTrue())
		Expect(resp.header.Get("auth-token")).To(Equal(session))

		me := call(http.MethodGet, "/api/user/me", nil, session)
		Expect(me.status).To(Equal(http.StatusOK))
		Expect(me.body).To(HaveKeyWithValue("isActive", true))
		Expect(me.body).To(HaveKey("activatedAt"))

		resp = call(http.MethodPost, "/api/user/change-password",
			map[string]string{"oldPassword": password, "newPassword": newPassword}, session)
		Expect(resp.status).To(Equal(http.StatusOK), resp.raw)

		resp = login(password)
		Expect(resp.status).To(Equal(http.StatusUnauthorized))
		Expect(resp.body).To(HaveKeyWithValue("code", auth.CodeInvalidCredentials))

		Expect(login(newPassword).status).To(Equal(http.StatusOK))
	})

	It("rejects a second registration of the same email", func() {
		register()

		resp := post("/api/user/register", credentials{"ALICE@example.com", "Another123!"})
		Expect(resp.status).To(Equal(http.StatusConflict))
		Expect(resp.body).To(HaveKeyWithValue("code", auth.CodeEmailTaken))
	})

	It("answers unknown emails and wrong passwords identically", func() {
		register()

		wrong := login("Wrong123!")
		unknown := post("/api/user/login", credentials{"nobody@example.com", password})

		Expect(wrong.status).To(Equal(http.StatusUnauthorized))
		Expect(unknown.status).To(Equal(wrong.status))
		Expect(unknown.body["error"]).To(Equal(wrong.body["error"]))
		Expect(unknown.body["code"]).To(Equal(wrong.body["code"]))
	})

	It("rejects malformed requests before touching the store", func() {
		resp := post("/api/user/register", credentials{"not-an-email", "short"})
		Expect(resp.status).To(Equal(http.StatusBadRequest))
		Expect(resp.body).To(HaveKeyWithValue("code", auth.CodeInvalidRequest))

		var count int
		Expect(env.pool.QueryRow(env.ctx, "SELECT count(*) FROM accounts").Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
	})

	Describe("password reset", func() {
		BeforeEach(func() {
			register()
			Expect(post("/api/user/send-password-reset-token", map[string]string{"email": email}).status).
				To(Equal(http.StatusOK))
		})

		It("sets the new password and consumes the token", func() {
			reset := env.outbox.last(email, auth.PurposePasswordReset)
			Expect(reset).NotTo(BeEmpty())

			resp := post("/api/user/password-reset", tokenPayload{Email: email, Token: reset, NewPassword: newPassword})
			Expect(resp.status).To(Equal(http.StatusOK), resp.raw)

			Expect(login(newPassword).status).To(Equal(http.StatusOK))
			Expect(login(password).status).To(Equal(http.StatusUnauthorized))

			resp = post("/api/user/password-reset", tokenPayload{Email: email, Token: reset, NewPassword: "Third789!"})
			Expect(resp.status).To(Equal(http.StatusNotFound))
		})

		It("refuses to reuse the current password", func() {
			reset := env.outbox.last(email, auth.PurposePasswordReset)

			resp := post("/api/user/password-reset", tokenPayload{Email: email, Token: reset, NewPassword: password})
			Expect(resp.status).To(Equal(http.StatusUnprocessableEntity))
			Expect(resp.body).To(HaveKeyWithValue("code", auth.CodePasswordReuse))
		})

		It("does not accept a reset token as a verification token", func() {
			reset := env.outbox.last(email, auth.PurposePasswordReset)

			resp := post("/api/user/verify", tokenPayload{Email: email, Token: reset})
			Expect(resp.status).To(Equal(http.StatusNotFound))
		})
	})

	It("replaces the verification token on resend", func() {
		register()
		first := env.outbox.last(email, auth.PurposeVerification)

		resp := post("/api/user/resend-verification-token", map[string]string{"email": email})
		Expect(resp.status).To(Equal(http.StatusOK))
		second := env.outbox.last(email, auth.PurposeVerification)
		Expect(second).NotTo(Equal(first))

		Expect(post("/api/user/verify", tokenPayload{Email: email, Token: first}).status).
			To(Equal(http.StatusNotFound))
		Expect(post("/api/user/verify", tokenPayload{Email: email, Token: second}).status).
			To(Equal(http.StatusOK))

		resp = post("/api/user/resend-verification-token", map[string]string{"email": email})
		Expect(resp.status).To(Equal(http.StatusConflict))
		Expect(resp.body).To(HaveKeyWithValue("code", auth.CodeAlreadyVerified))
	})

	It("rejects protected routes without a valid session", func() {
		Expect(call(http.MethodGet, "/api/user/me", nil, "").status).To(Equal(http.StatusUnauthorized))

		resp := call(http.MethodGet, "/api/user/me", nil, "not-a-jwt")
		Expect(resp.status).To(Equal(http.StatusUnauthorized))
		Expect(resp.body).To(HaveKeyWithValue("code", auth.CodeInvalidSession))
	})
})
