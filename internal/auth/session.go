// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session binds a user to the single refresh token currently accepted for them.
type Session struct {
	UserID    ulid.ULID
	Token     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates a validated Session.
func NewSession(userID ulid.ULID, token string, now time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if token == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("token cannot be empty")
	}
	return &Session{
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SessionRepository manages session persistence. Each user has at most one row.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByUser retrieves the session for a user.
	// Returns ErrNotFound if the user has no session.
	GetByUser(ctx context.Context, userID ulid.ULID) (*Session, error)

	// DeleteByUser removes the session for a user. Deleting a missing session is not an error.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error
}
