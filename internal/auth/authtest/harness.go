// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package authtest

import (
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hellowebapp/hellowebapp/internal/auth"
)

// Fixed secrets used by NewHarness.
var (
	AccessSecret    = []byte("test-access-secret")
	RefreshSecret   = []byte("test-refresh-secret")
	SignatureSecret = []byte("test-mail-signature-secret")
	ResetSecret     = []byte("test-password-reset-secret")
)

// Harness wires a complete auth.Service over in-memory collaborators.
type Harness struct {
	Store    *Store
	Mailer   *Mailer
	Clock    *Clock
	Hasher   *auth.BcryptHasher
	Tokens   *auth.TokenIssuer
	Identity *auth.IdentityCodec
	Resets   *auth.ResetCodec
	Service  *auth.Service
}

// NewHarness builds a Harness with the clock at a fixed instant and a cheap bcrypt cost.
func NewHarness(t testing.TB) *Harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		Store:  NewStore(),
		Mailer: NewMailer(),
		Clock:  NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	}

	var err error
	h.Tokens, err = auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  AccessSecret,
		RefreshSecret: RefreshSecret,
		AccessTTL:     auth.DefaultAccessTokenTTL,
		RefreshTTL:    auth.DefaultRefreshTokenTTL,
	}, h.Store.Sessions(), h.Store, h.Clock, logger)
	require.NoError(t, err)

	h.Identity, err = auth.NewIdentityCodec(SignatureSecret, auth.DefaultAppName, auth.DefaultIdentityWindow, h.Clock)
	require.NoError(t, err)

	h.Resets, err = auth.NewResetCodec(auth.ResetCodecConfig{
		Secret: ResetSecret,
		Clock:  h.Clock,
		Logger: logger,
	}, h.Store.Resets(), h.Store)
	require.NoError(t, err)

	h.Service, err = auth.NewService(auth.ServiceDeps{
		Users:    h.Store.Users(),
		Sessions: h.Store.Sessions(),
		Tx:       h.Store,
		Hasher:   h.Hasher,
		Tokens:   h.Tokens,
		Identity: h.Identity,
		Resets:   h.Resets,
		Mailer:   h.Mailer,
		Clock:    h.Clock,
		Logger:   logger,
	})
	require.NoError(t, err)
	return h
}

// ParseIdentityLink splits an identity verification link into the user ID
// path segment and the request its handler would receive.
func ParseIdentityLink(t testing.TB, link string) (string, auth.IdentityRequest) {
	t.Helper()

	u, err := url.Parse(link)
	require.NoError(t, err)
	rest, ok := strings.CutPrefix(u.Path, auth.IdentityVerifyPath+"/")
	require.True(t, ok, "unexpected identity link path %q", u.Path)
	userID, fingerprint, ok := strings.Cut(rest, "/")
	require.True(t, ok, "identity link has no fingerprint: %q", link)

	q := u.Query()
	return userID, auth.IdentityRequest{
		RequestURI:  u.RequestURI(),
		Fingerprint: fingerprint,
		Expires:     q.Get("expires"),
		Signature:   q.Get("signature"),
	}
}

// ParseResetLink returns the token and email carried by a password reset link.
func ParseResetLink(t testing.TB, link string) (token, email string) {
	t.Helper()

	u, err := url.Parse(link)
	require.NoError(t, err)
	token, ok := strings.CutPrefix(u.Path, auth.ResetPasswordPath+"/")
	require.True(t, ok, "unexpected reset link path %q", u.Path)
	return token, u.Query().Get("email")
}
