// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/url"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

const (
	name        = "Alice"
	email       = "alice@example.com"
	password    = "Passw0rd!"
	newPassword = "N3wPassw0rd!"
)

var _ = Describe("Account lifecycle", Ordered, func() {
	var (
		env     *testEnv
		access  string
		refresh string
	)

	BeforeAll(func() {
		Expect(db.Truncate(context.Background())).To(Succeed())
		env = newTestEnv()
		DeferCleanup(env.close)
	})

	It("signs up and mails an identity link", func() {
		r := env.do(request{
			method: http.MethodPost,
			target: "/api/auth/signup",
			json:   map[string]string{"name": name, "email": email, "password": password},
		})
		Expect(r.status).To(Equal(http.StatusOK), r.raw)
		Expect(r.body).To(HaveKeyWithValue("success", true))
		Expect(env.mailer.LastLink(email)).To(HavePrefix(env.server.URL))
	})

	It("rejects a second signup with the same email", func() {
		r := env.do(request{
			method: http.MethodPost,
			target: "/api/auth/signup",
			json:   map[string]string{"name": "Mallory", "email": email, "password": password},
		})
		Expect(r.status).To(Equal(http.StatusConflict), r.raw)
		Expect(r.body).To(HaveKeyWithValue("success", false))
	})

	It("verifies the identity link once", func() {
		link := env.mailer.LastLink(email)

		first := env.do(request{method: http.MethodGet, target: link})
		Expect(first.status).To(Equal(http.StatusCreated), first.raw)

		again := env.do(request{method: http.MethodGet, target: link})
		Expect(again.status).To(Equal(http.StatusNoContent))
	})

	It("signs in and reports a verified profile", func() {
		r := env.do(request{
			method: http.MethodPost,
			target: "/api/auth/signin",
			json:   map[string]string{"email": email, "password": password},
		})
		Expect(r.status).To(Equal(http.StatusOK), r.raw)
		Expect(r.body).To(HaveKeyWithValue("token", Not(BeEmpty())))
		Expect(r.body["user"]).To(HaveKeyWithValue("verified", true))

		access = r.body["token"].(string)
		refresh = r.refreshCookie()
		Expect(refresh).NotTo(BeEmpty())

		profile := env.do(request{method: http.MethodGet, target: "/api/user", access: access})
		Expect(profile.status).To(Equal(http.StatusOK), profile.raw)
		Expect(profile.body["user"]).To(HaveKeyWithValue("email", email))
	})

	It("rotates the refresh token", func() {
		r := env.do(request{method: http.MethodGet, target: "/api/auth/refresh", refresh: refresh})
		Expect(r.status).To(Equal(http.StatusOK), r.raw)
		Expect(r.body).To(HaveKeyWithValue("token", Not(BeEmpty())))
		rotated := r.refreshCookie()
		Expect(rotated).NotTo(BeEmpty())
		Expect(rotated).NotTo(Equal(refresh))

		stale := env.do(request{method: http.MethodGet, target: "/api/auth/refresh", refresh: refresh})
		Expect(stale.status).To(Equal(http.StatusUnauthorized), stale.raw)

		access = r.body["token"].(string)
		refresh = rotated
	})

	It("resets the password through the emailed form", func() {
		send := env.do(request{
			method: http.MethodPost,
			target: "/api/auth/reset-password",
			json:   map[string]string{"email": email},
		})
		Expect(send.status).To(Equal(http.StatusOK), send.raw)

		link := env.mailer.LastLink(email)
		page := env.do(request{method: http.MethodGet, target: link})
		Expect(page.status).To(Equal(http.StatusOK))
		Expect(page.raw).To(ContainSubstring(`name="passwordConfirmation"`))

		token, linkEmail := resetLinkParts(link)
		form := url.Values{
			"token":                {token},
			"email":                {linkEmail},
			"password":             {newPassword},
			"passwordConfirmation": {newPassword},
		}
		submit := env.do(request{method: http.MethodPost, target: "/api/auth/verify/reset-password", form: form})
		Expect(submit.status).To(Equal(http.StatusOK), submit.raw)

		reused := env.do(request{method: http.MethodPost, target: "/api/auth/verify/reset-password", form: form})
		Expect(reused.status).To(Equal(http.StatusUnauthorized), reused.raw)
	})

	It("only accepts the new password", func() {
		old := env.do(request{
			method: http.MethodPost,
			target: "/api/auth/signin",
			json:   map[string]string{"email": email, "password": password},
		})
		Expect(old.status).To(Equal(http.StatusUnauthorized), old.raw)

		r := env.do(request{
			method: http.MethodPost,
			target: "/api/auth/signin",
			json:   map[string]string{"email": email, "password": newPassword},
		})
		Expect(r.status).To(Equal(http.StatusOK), r.raw)
		access = r.body["token"].(string)
	})

	It("withdraws the account", func() {
		r := env.do(request{
			method: http.MethodDelete,
			target: "/api/auth/withdraw",
			json:   map[string]string{"password": newPassword},
			access: access,
		})
		Expect(r.status).To(Equal(http.StatusOK), r.raw)

		var count int
		Expect(db.Pool.QueryRow(context.Background(), `SELECT count(*) FROM users`).Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())

		after := env.do(request{method: http.MethodGet, target: "/api/user", access: access})
		Expect(after.status).To(Equal(http.StatusUnauthorized), after.raw)
	})
})
