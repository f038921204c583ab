// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // fingerprint only detects email changes; the HMAC carries the trust
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// IdentityVerifyPath is the route prefix of identity verification links.
const IdentityVerifyPath = "/api/auth/verify/identify"

// DefaultIdentityWindow is how long an identity verification link stays valid.
const DefaultIdentityWindow = time.Hour

const signatureParam = "&signature="

// IdentityCodec builds and checks signed, expiring email verification links.
type IdentityCodec struct {
	secret  []byte
	appName string
	window  time.Duration
	clock   Clock
}

// NewIdentityCodec creates an IdentityCodec.
func NewIdentityCodec(secret []byte, appName string, window time.Duration, clock Clock) (*IdentityCodec, error) {
	if len(secret) == 0 {
		return nil, oops.Code("IDENTITY_CONFIG_INVALID").Errorf("mail signature secret is required")
	}
	if window <= 0 {
		window = DefaultIdentityWindow
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &IdentityCodec{secret: secret, appName: appName, window: window, clock: clock}, nil
}

// IdentityRequest carries the parts of an inbound verification request.
type IdentityRequest struct {
	// RequestURI is the raw path and query exactly as received.
	RequestURI  string
	Fingerprint string
	Expires     string
	Signature   string
}

// Window returns how long generated links stay valid.
func (c *IdentityCodec) Window() time.Duration {
	return c.window
}

// Generate returns the verification link for user under origin.
func (c *IdentityCodec) Generate(origin string, user *User) string {
	expires := c.clock.Now().Add(c.window).UnixMilli()
	canonical := IdentityVerifyPath + "/" + user.ID.String() + "/" + Fingerprint(user.Email) +
		"?expires=" + strconv.FormatInt(expires, 10)
	return origin + canonical + signatureParam + c.sign(canonical)
}

// Verify reports whether req is an unexpired, untampered link for the user's current email.
func (c *IdentityCodec) Verify(req IdentityRequest, user *User) bool {
	expires, err := strconv.ParseInt(req.Expires, 10, 64)
	if err != nil || expires < c.clock.Now().UnixMilli() {
		return false
	}

	canonical, _, _ := strings.Cut(req.RequestURI, signatureParam)
	return req.Fingerprint == Fingerprint(user.Email) && req.Signature == c.sign(canonical)
}

func (c *IdentityCodec) sign(canonical string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(c.appName + ":" + canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Fingerprint returns the hex SHA-1 of an email address.
func Fingerprint(email string) string {
	sum := sha1.Sum([]byte(email)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}
