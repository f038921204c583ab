// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
)

// ResetPasswordPath is the route prefix of password reset links.
const ResetPasswordPath = "/api/auth/reset-password"

// Reset token configuration.
const (
	ResetRandomDigits  = 36
	DefaultResetWindow = time.Hour
)

// ResetCodec creates and checks single-use password reset tokens.
type ResetCodec struct {
	secret []byte
	window time.Duration
	resets PasswordResetRepository
	tx     Transactor
	clock  Clock
	random io.Reader
	logger *slog.Logger
}

// ResetCodecConfig configures a ResetCodec. Zero Window, nil Clock, Random and Logger take defaults.
type ResetCodecConfig struct {
	Secret []byte
	Window time.Duration
	Clock  Clock
	Random io.Reader
	Logger *slog.Logger
}

// NewResetCodec creates a ResetCodec.
func NewResetCodec(cfg ResetCodecConfig, resets PasswordResetRepository, tx Transactor) (*ResetCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, oops.Code("RESET_CONFIG_INVALID").Errorf("password reset secret is required")
	}
	if resets == nil {
		return nil, oops.Code("RESET_CONFIG_INVALID").Errorf("reset repository is required")
	}
	if tx == nil {
		return nil, oops.Code("RESET_CONFIG_INVALID").Errorf("transactor is required")
	}
	c := &ResetCodec{
		secret: cfg.Secret,
		window: cfg.Window,
		resets: resets,
		tx:     tx,
		clock:  cfg.Clock,
		random: cfg.Random,
		logger: cfg.Logger,
	}
	if c.window <= 0 {
		c.window = DefaultResetWindow
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	if c.random == nil {
		c.random = rand.Reader
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Window returns how long generated tokens stay valid.
func (c *ResetCodec) Window() time.Duration {
	return c.window
}

// Generate replaces the reset request for email and returns its link under origin.
func (c *ResetCodec) Generate(ctx context.Context, origin, email string) (string, error) {
	digits, err := c.randomDigits()
	if err != nil {
		return "", oops.Code("RESET_GENERATE_FAILED").With("operation", "random digits").Wrap(err)
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(digits))
	token := hex.EncodeToString(mac.Sum(nil))

	now := c.clock.Now()
	reset, err := NewPasswordReset(email, token, now, now.Add(c.window))
	if err != nil {
		return "", oops.Code("RESET_GENERATE_FAILED").With("operation", "new password reset").Wrap(err)
	}

	err = c.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := c.resets.DeleteByEmail(ctx, email); err != nil {
			return oops.With("operation", "delete reset").Wrap(err)
		}
		if err := c.resets.Create(ctx, reset); err != nil {
			return oops.With("operation", "create reset").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return "", oops.Code("RESET_GENERATE_FAILED").With("email", email).Wrap(err)
	}

	link := origin + ResetPasswordPath + "/" + token + "?email=" + encodeURIComponent(email)
	c.logger.InfoContext(ctx, "reset password url created", "email", email, "token", Abbreviate(token))
	return link, nil
}

// Verify returns the pending request for email if token matches it and it has not expired.
func (c *ResetCodec) Verify(ctx context.Context, email, token string) (*PasswordReset, error) {
	reset, err := c.resets.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeResetTokenInvalid).
				With("email", email).
				Errorf("password reset token is invalid")
		}
		return nil, oops.Code("RESET_VERIFY_FAILED").
			With("operation", "get reset by email").
			Wrap(err)
	}
	if reset.Token != token {
		return nil, oops.Code(CodeResetTokenInvalid).
			With("email", email).
			Errorf("password reset token is invalid")
	}
	if reset.IsExpiredAt(c.clock.Now()) {
		return nil, oops.Code(CodeResetTokenInvalid).
			With("email", email).
			With("expired_at", reset.ExpiresAt).
			Errorf("password reset token is invalid")
	}
	return reset, nil
}

// Consume deletes the request for email if it still carries token. A request
// replaced or consumed since token was verified yields CodeResetTokenInvalid.
// Call it inside the transaction that stores the new password.
func (c *ResetCodec) Consume(ctx context.Context, email, token string) error {
	err := c.resets.DeleteByToken(ctx, email, token)
	if errors.Is(err, ErrNotFound) {
		return oops.Code(CodeResetTokenInvalid).
			With("email", email).
			Errorf("password reset token is invalid")
	}
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").With("email", email).Wrap(err)
	}
	return nil
}

func (c *ResetCodec) randomDigits() (string, error) {
	ten := big.NewInt(10)
	var b strings.Builder
	b.Grow(ResetRandomDigits)
	for range ResetRandomDigits {
		n, err := rand.Int(c.random, ten)
		if err != nil {
			return "", err //nolint:wrapcheck // wrapped by caller
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// encodeURIComponent escapes s the way browsers' encodeURIComponent does,
// leaving A-Z a-z 0-9 - _ . ! ~ * ' ( ) unescaped.
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	r := strings.NewReplacer("%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")
	return r.Replace(escaped)
}
