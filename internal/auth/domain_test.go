// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellowebapp/hellowebapp/internal/auth"
	"github.com/hellowebapp/hellowebapp/pkg/errutil"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewUser(t *testing.T) {
	t.Run("creates unverified user", func(t *testing.T) {
		user, err := auth.NewUser("Alice", "alice@example.com", "hash", fixedNow)
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.False(t, user.Verified)
		assert.Nil(t, user.SignedInAt)
		assert.Equal(t, fixedNow, user.CreatedAt)
		assert.Equal(t, auth.Profile{Name: "Alice", Email: "alice@example.com"}, user.Profile())
	})

	tests := []struct {
		name, userName, email, hash string
	}{
		{"blank name", "  ", "alice@example.com", "hash"},
		{"blank email", "Alice", "", "hash"},
		{"empty hash", "Alice", "alice@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewUser(tt.userName, tt.email, tt.hash, fixedNow)
			errutil.AssertErrorCode(t, err, "USER_INVALID")
		})
	}
}

func TestNewSession(t *testing.T) {
	session, err := auth.NewSession(ulid.Make(), "token", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "token", session.Token)

	_, err = auth.NewSession(ulid.ULID{}, "token", fixedNow)
	errutil.AssertErrorCode(t, err, "SESSION_INVALID_USER")

	_, err = auth.NewSession(ulid.Make(), "", fixedNow)
	errutil.AssertErrorCode(t, err, "SESSION_INVALID_TOKEN")
}

func TestNewPasswordReset(t *testing.T) {
	expires := fixedNow.Add(time.Hour)

	reset, err := auth.NewPasswordReset("alice@example.com", "token", fixedNow, expires)
	require.NoError(t, err)
	assert.False(t, reset.IsExpiredAt(fixedNow))
	assert.False(t, reset.IsExpiredAt(expires.Add(-time.Nanosecond)))
	assert.True(t, reset.IsExpiredAt(expires))

	_, err = auth.NewPasswordReset("", "token", fixedNow, expires)
	errutil.AssertErrorCode(t, err, "RESET_INVALID_EMAIL")

	_, err = auth.NewPasswordReset("alice@example.com", "", fixedNow, expires)
	errutil.AssertErrorCode(t, err, "RESET_INVALID_TOKEN")

	_, err = auth.NewPasswordReset("alice@example.com", "token", fixedNow, fixedNow)
	errutil.AssertErrorCode(t, err, "RESET_INVALID_EXPIRY")
}

func TestUserIDContext(t *testing.T) {
	_, ok := auth.UserIDFromContext(context.Background())
	assert.False(t, ok)

	id := ulid.Make()
	got, ok := auth.UserIDFromContext(auth.WithUserID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestClockFunc(t *testing.T) {
	clock := auth.ClockFunc(func() time.Time { return fixedNow })
	assert.Equal(t, fixedNow, clock.Now())
	assert.WithinDuration(t, time.Now(), auth.SystemClock{}.Now(), time.Second)
}
