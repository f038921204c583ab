// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type contextKey struct {
	name string
}

var userIDKey = &contextKey{"user_id"}

// WithUserID returns a context carrying the id decoded from a validated token.
func WithUserID(ctx context.Context, id ulid.ULID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the id stored by WithUserID.
func UserIDFromContext(ctx context.Context) (ulid.ULID, bool) {
	id, ok := ctx.Value(userIDKey).(ulid.ULID)
	return id, ok
}
