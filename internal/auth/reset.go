// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// PasswordReset is the pending reset request for one email address.
type PasswordReset struct {
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPasswordReset creates a validated PasswordReset.
func NewPasswordReset(email, token string, now, expiresAt time.Time) (*PasswordReset, error) {
	if email == "" {
		return nil, oops.Code("RESET_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if token == "" {
		return nil, oops.Code("RESET_INVALID_TOKEN").Errorf("token cannot be empty")
	}
	if !expiresAt.After(now) {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry must be after creation time")
	}
	return &PasswordReset{
		Email:     email,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsExpiredAt returns true if the request is expired at t.
func (r *PasswordReset) IsExpiredAt(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}

// PasswordResetRepository manages reset request persistence. Each email has at most one row.
type PasswordResetRepository interface {
	// Create stores a new reset request.
	Create(ctx context.Context, reset *PasswordReset) error

	// GetByEmail retrieves the reset request for an email.
	// Returns ErrNotFound if none exists.
	GetByEmail(ctx context.Context, email string) (*PasswordReset, error)

	// DeleteByEmail removes the reset request for an email. Deleting a missing row is not an error.
	DeleteByEmail(ctx context.Context, email string) error

	// DeleteByToken removes the reset request for an email only if it still carries token.
	// Returns ErrNotFound if no row matched.
	DeleteByToken(ctx context.Context, email, token string) error
}
