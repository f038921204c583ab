// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/gomega" //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/hellowebapp/hellowebapp/internal/auth"
	"github.com/hellowebapp/hellowebapp/internal/auth/authtest"
	"github.com/hellowebapp/hellowebapp/internal/auth/postgres"
	"github.com/hellowebapp/hellowebapp/internal/httpapi"
	"github.com/hellowebapp/hellowebapp/internal/observability"
)

// testEnv is the API served over the container database with mail captured in memory.
type testEnv struct {
	server *httptest.Server
	mailer *authtest.Mailer
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := auth.SystemClock{}
	users := postgres.NewUserRepository(db.Pool)
	sessions := postgres.NewSessionRepository(db.Pool)
	tx := postgres.NewTransactor(db.Pool)
	mailer := authtest.NewMailer()

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  authtest.AccessSecret,
		RefreshSecret: authtest.RefreshSecret,
		AccessTTL:     auth.DefaultAccessTokenTTL,
		RefreshTTL:    auth.DefaultRefreshTokenTTL,
	}, sessions, tx, clock, logger)
	Expect(err).NotTo(HaveOccurred())

	identity, err := auth.NewIdentityCodec(authtest.SignatureSecret, auth.DefaultAppName, auth.DefaultIdentityWindow, clock)
	Expect(err).NotTo(HaveOccurred())

	resets, err := auth.NewResetCodec(auth.ResetCodecConfig{
		Secret: authtest.ResetSecret,
		Clock:  clock,
		Logger: logger,
	}, postgres.NewPasswordResetRepository(db.Pool), tx)
	Expect(err).NotTo(HaveOccurred())

	svc, err := auth.NewService(auth.ServiceDeps{
		Users:    users,
		Sessions: sessions,
		Tx:       tx,
		Hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
		Tokens:   tokens,
		Identity: identity,
		Resets:   resets,
		Mailer:   mailer,
		Clock:    clock,
		Logger:   logger,
	})
	Expect(err).NotTo(HaveOccurred())

	handler, err := httpapi.NewHandler(svc, observability.NewMetrics(prometheus.NewRegistry()), logger, httpapi.Options{
		AppName: auth.DefaultAppName,
		Version: "integration",
		Origin:  "true",
	})
	Expect(err).NotTo(HaveOccurred())

	return &testEnv{server: httptest.NewServer(handler), mailer: mailer}
}

func (e *testEnv) close() {
	e.server.Close()
}

// reply is a decoded API response.
type reply struct {
	status  int
	body    map[string]any
	raw     string
	cookies []*http.Cookie
}

// request describes one API call. The refresh cookie is Secure so it is set by hand.
type request struct {
	method  string
	target  string
	json    any
	form    url.Values
	access  string
	refresh string
}

func (e *testEnv) do(req request) reply {
	target := req.target
	if !strings.HasPrefix(target, "http") {
		target = e.server.URL + target
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.json != nil:
		encoded, err := json.Marshal(req.json)
		Expect(err).NotTo(HaveOccurred())
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequest(req.method, target, body)
	Expect(err).NotTo(HaveOccurred())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.access != "" {
		httpReq.Header.Set(httpapi.AccessHeader, req.access)
	}
	if req.refresh != "" {
		httpReq.AddCookie(&http.Cookie{Name: httpapi.RefreshCookie, Value: req.refresh})
	}

	resp, err := e.server.Client().Do(httpReq)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	r := reply{status: resp.StatusCode, raw: string(raw), cookies: resp.Cookies()}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && len(raw) > 0 {
		Expect(json.Unmarshal(raw, &r.body)).To(Succeed())
	}
	return r
}

func (r reply) refreshCookie() string {
	for _, c := range r.cookies {
		if c.Name == httpapi.RefreshCookie {
			return c.Value
		}
	}
	return ""
}

// resetLinkParts returns the token and email carried by a reset link.
func resetLinkParts(link string) (token, email string) {
	u, err := url.Parse(link)
	Expect(err).NotTo(HaveOccurred())
	token, ok := strings.CutPrefix(u.Path, auth.ResetPasswordPath+"/")
	Expect(ok).To(BeTrue(), "unexpected reset link %q", link)
	return token, u.Query().Get("email")
}
