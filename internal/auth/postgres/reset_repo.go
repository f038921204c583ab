// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/hellowebapp/hellowebapp/internal/auth"
)

// PasswordResetRepository implements auth.PasswordResetRepository using PostgreSQL.
type PasswordResetRepository struct {
	db DB
}

// NewPasswordResetRepository creates a new PasswordResetRepository.
func NewPasswordResetRepository(db DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create stores a new reset request. It fails if the email already has one.
func (r *PasswordResetRepository) Create(ctx context.Context, reset *auth.PasswordReset) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO password_resets (email, token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		reset.Email,
		reset.Token,
		reset.ExpiresAt,
		reset.CreatedAt,
		reset.UpdatedAt,
	)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert password reset").
			With("email", reset.Email).
			Wrap(err)
	}
	return nil
}

// GetByEmail retrieves the pending reset request for email.
func (r *PasswordResetRepository) GetByEmail(ctx context.Context, email string) (*auth.PasswordReset, error) {
	reset := auth.PasswordReset{Email: email}
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT token, expires_at, created_at, updated_at
		FROM password_resets
		WHERE email = $1
	`, email).Scan(&reset.Token, &reset.ExpiresAt, &reset.CreatedAt, &reset.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_GET_FAILED").
			With("operation", "get password reset by email").
			With("email", email).
			Wrap(err)
	}
	return &reset, nil
}

// DeleteByEmail removes the reset request for email. A missing request is not an error.
func (r *PasswordResetRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM password_resets WHERE email = $1`, email)
	if err != nil {
		return oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete password reset").
			With("email", email).
			Wrap(err)
	}
	return nil
}

// DeleteByToken removes the reset request for email if it still holds token.
func (r *PasswordResetRepository) DeleteByToken(ctx context.Context, email, token string) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`DELETE FROM password_resets WHERE email = $1 AND token = $2`, email, token)
	if err != nil {
		return oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete password reset by token").
			With("email", email).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("RESET_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

var _ auth.PasswordResetRepository = (*PasswordResetRepository)(nil)
