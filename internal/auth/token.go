// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = 10 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenConfig holds the signing secrets and lifetimes of the token pair.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenPair is the result of a successful issue.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Claims is the payload of both tokens. The id is the user ID.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and validates the access/refresh pair and owns the session row.
type TokenIssuer struct {
	cfg      TokenConfig
	sessions SessionRepository
	tx       Transactor
	clock    Clock
	logger   *slog.Logger
}

// NewTokenIssuer creates a TokenIssuer. A nil logger uses slog.Default().
func NewTokenIssuer(cfg TokenConfig, sessions SessionRepository, tx Transactor, clock Clock, logger *slog.Logger) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("access secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("refresh secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("access_ttl", cfg.AccessTTL).
			With("refresh_ttl", cfg.RefreshTTL).
			Errorf("token lifetimes must be positive")
	}
	if sessions == nil {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("sessions repository is required")
	}
	if tx == nil {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("transactor is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenIssuer{cfg: cfg, sessions: sessions, tx: tx, clock: clock, logger: logger}, nil
}

// Issue signs a new pair for userID and replaces the user's session with the new refresh token.
func (i *TokenIssuer) Issue(ctx context.Context, userID ulid.ULID) (TokenPair, error) {
	now := i.clock.Now()

	refresh, err := i.sign(userID, now, i.cfg.RefreshTTL, i.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, oops.Code("TOKEN_ISSUE_FAILED").With("kind", "refresh").Wrap(err)
	}
	access, err := i.sign(userID, now, i.cfg.AccessTTL, i.cfg.AccessSecret)
	if err != nil {
		return TokenPair{}, oops.Code("TOKEN_ISSUE_FAILED").With("kind", "access").Wrap(err)
	}

	session, err := NewSession(userID, refresh, now)
	if err != nil {
		return TokenPair{}, oops.Code("TOKEN_ISSUE_FAILED").With("operation", "new session").Wrap(err)
	}

	err = i.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := i.sessions.DeleteByUser(ctx, userID); err != nil {
			return oops.With("operation", "delete session").Wrap(err)
		}
		if err := i.sessions.Create(ctx, session); err != nil {
			return oops.With("operation", "create session").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return TokenPair{}, oops.Code("TOKEN_ISSUE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}

	i.logger.InfoContext(ctx, "token created",
		"user_id", userID.String(),
		"refresh", Abbreviate(refresh),
		"access", Abbreviate(access),
	)
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccess verifies an access token and requires that the user has a session.
// The stored refresh token is not compared, so an access token stays valid for
// its lifetime as long as the user has any session at all.
func (i *TokenIssuer) ValidateAccess(ctx context.Context, token string) (ulid.ULID, error) {
	userID, err := i.parse(token, i.cfg.AccessSecret)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeAccessTokenInvalid).
			With("reason", err.Error()).
			Errorf("access token is invalid")
	}

	if _, err := i.sessions.GetByUser(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code(CodeAccessTokenInvalid).
				With("user_id", userID.String()).
				Errorf("access token is invalid")
		}
		return ulid.ULID{}, oops.Code("TOKEN_VALIDATE_FAILED").
			With("operation", "get session").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return userID, nil
}

// ValidateRefresh verifies a refresh token and requires it to be the one stored for the user.
func (i *TokenIssuer) ValidateRefresh(ctx context.Context, token string) (ulid.ULID, error) {
	userID, err := i.parse(token, i.cfg.RefreshSecret)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeRefreshInvalid).
			With("reason", err.Error()).
			Errorf("refresh token is invalid")
	}

	session, err := i.sessions.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code(CodeRefreshInvalid).
				With("user_id", userID.String()).
				Errorf("refresh token is invalid")
		}
		return ulid.ULID{}, oops.Code("TOKEN_VALIDATE_FAILED").
			With("operation", "get session").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if session.Token != token {
		return ulid.ULID{}, oops.Code(CodeRefreshInvalid).
			With("user_id", userID.String()).
			Errorf("refresh token is invalid")
	}
	return userID, nil
}

// RefreshTTL returns the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.cfg.RefreshTTL
}

func (i *TokenIssuer) sign(userID ulid.ULID, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", oops.Wrap(err)
	}
	return signed, nil
}

func (i *TokenIssuer) parse(token string, secret []byte) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Errorf("token is empty")
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return ulid.ULID{}, oops.Wrap(err)
	}
	if !parsed.Valid {
		return ulid.ULID{}, oops.Errorf("token is not valid")
	}
	userID, err := ulid.Parse(claims.UserID)
	if err != nil {
		return ulid.ULID{}, oops.With("claim", "id").Wrap(err)
	}
	return userID, nil
}

// Abbreviate shortens a token to its first and last three characters for logging.
func Abbreviate(token string) string {
	if len(token) <= 6 {
		return "..."
	}
	return token[:3] + "..." + token[len(token)-3:]
}
