// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hellowebapp/hellowebapp/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session. It fails if the user already has one.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO sessions (user_id, token, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`,
		session.UserID.String(),
		session.Token,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByUser retrieves the session of userID.
func (r *SessionRepository) GetByUser(ctx context.Context, userID ulid.ULID) (*auth.Session, error) {
	var session auth.Session
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT token, created_at, updated_at
		FROM sessions
		WHERE user_id = $1
	`, userID.String()).Scan(&session.Token, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	session.UserID = userID
	return &session, nil
}

// DeleteByUser removes the session of userID. A missing session is not an error.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
