// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellowebapp/hellowebapp/internal/auth"
	"github.com/hellowebapp/hellowebapp/internal/auth/postgres"
	"github.com/hellowebapp/hellowebapp/pkg/errutil"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var userCols = []string{"id", "name", "email", "password_hash", "verified", "signed_in_at", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func testUser(t *testing.T) *auth.User {
	t.Helper()
	user, err := auth.NewUser("Alice", "alice@example.com", "hash", now)
	require.NoError(t, err)
	return user
}

func emailConflict() error {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)

	t.Run("inserts", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), "Alice", "alice@example.com", "hash", false, pgxmock.AnyArg(), now, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, postgres.NewUserRepository(mock).Create(ctx, user))
	})

	t.Run("unique email violation maps to ErrEmailTaken", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).WillReturnError(emailConflict())

		err := postgres.NewUserRepository(mock).Create(ctx, user)
		require.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("other unique violation is a plain failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_pkey"})

		err := postgres.NewUserRepository(mock).Create(ctx, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrEmailTaken)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
	})
}

func TestUserRepository_Get(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)
	signedIn := now.Add(time.Minute)

	t.Run("by id", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE id = \$1`).
			WithArgs(user.ID.String()).
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(user.ID.String(), "Alice", "alice@example.com", "hash", true, &signedIn, now, now))

		got, err := postgres.NewUserRepository(mock).GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.True(t, got.Verified)
		require.NotNil(t, got.SignedInAt)
		assert.Equal(t, signedIn, *got.SignedInAt)
	})

	t.Run("by email", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE email = \$1`).
			WithArgs("alice@example.com").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(user.ID.String(), "Alice", "alice@example.com", "hash", false, (*time.Time)(nil), now, now))

		got, err := postgres.NewUserRepository(mock).GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Name)
		assert.Nil(t, got.SignedInAt)
	})

	t.Run("missing maps to ErrNotFound", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users`).
			WithArgs("nobody@example.com").
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err := postgres.NewUserRepository(mock).GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("corrupt id fails", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users`).
			WithArgs(user.ID.String()).
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow("not-a-ulid", "Alice", "alice@example.com", "hash", false, (*time.Time)(nil), now, now))

		_, err := postgres.NewUserRepository(mock).GetByID(ctx, user.ID)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_GET_BY_ID_FAILED")
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users`).WillReturnError(errors.New("connection reset"))

		_, err := postgres.NewUserRepository(mock).GetByID(ctx, user.ID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_GET_BY_ID_FAILED")
	})
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)

	t.Run("updates", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs(user.ID.String(), "Alice", "alice@example.com", "hash", false, pgxmock.AnyArg(), now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, postgres.NewUserRepository(mock).Update(ctx, user))
	})

	t.Run("no row is ErrNotFound", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := postgres.NewUserRepository(mock).Update(ctx, user)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("email conflict", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users`).WillReturnError(emailConflict())

		err := postgres.NewUserRepository(mock).Update(ctx, user)
		require.ErrorIs(t, err, auth.ErrEmailTaken)
	})
}

func TestUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM users`).
		WithArgs(id.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := postgres.NewUserRepository(mock)
	require.NoError(t, repo.Delete(ctx, id))
	require.ErrorIs(t, repo.Delete(ctx, id), auth.ErrNotFound)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()
	session, err := auth.NewSession(userID, "refresh-token", now)
	require.NoError(t, err)

	t.Run("create", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(userID.String(), "refresh-token", now, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, postgres.NewSessionRepository(mock).Create(ctx, session))
	})

	t.Run("create failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "sessions_pkey"})

		err := postgres.NewSessionRepository(mock).Create(ctx, session)
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
	})

	t.Run("get", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT token, created_at, updated_at\s+FROM sessions`).
			WithArgs(userID.String()).
			WillReturnRows(pgxmock.NewRows([]string{"token", "created_at", "updated_at"}).
				AddRow("refresh-token", now, now))

		got, err := postgres.NewSessionRepository(mock).GetByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, *session, *got)
	})

	t.Run("get missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM sessions`).
			WithArgs(userID.String()).
			WillReturnRows(pgxmock.NewRows([]string{"token", "created_at", "updated_at"}))

		_, err := postgres.NewSessionRepository(mock).GetByUser(ctx, userID)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("delete missing is not an error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1`).
			WithArgs(userID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		require.NoError(t, postgres.NewSessionRepository(mock).DeleteByUser(ctx, userID))
	})
}

func TestPasswordResetRepository(t *testing.T) {
	ctx := context.Background()
	expires := now.Add(time.Hour)
	reset, err := auth.NewPasswordReset("alice@example.com", "reset-token", now, expires)
	require.NoError(t, err)
	cols := []string{"token", "expires_at", "created_at", "updated_at"}

	t.Run("create", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO password_resets`).
			WithArgs("alice@example.com", "reset-token", expires, now, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, postgres.NewPasswordResetRepository(mock).Create(ctx, reset))
	})

	t.Run("get", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM password_resets`).
			WithArgs("alice@example.com").
			WillReturnRows(pgxmock.NewRows(cols).AddRow("reset-token", expires, now, now))

		got, err := postgres.NewPasswordResetRepository(mock).GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, *reset, *got)
	})

	t.Run("get missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM password_resets`).
			WithArgs("alice@example.com").
			WillReturnRows(pgxmock.NewRows(cols))

		_, err := postgres.NewPasswordResetRepository(mock).GetByEmail(ctx, "alice@example.com")
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "RESET_NOT_FOUND")
	})

	t.Run("delete failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM password_resets`).WillReturnError(errors.New("read only"))

		err := postgres.NewPasswordResetRepository(mock).DeleteByEmail(ctx, "alice@example.com")
		errutil.AssertErrorCode(t, err, "RESET_DELETE_FAILED")
	})

	t.Run("delete by token", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM password_resets WHERE email = \$1 AND token = \$2`).
			WithArgs("alice@example.com", "reset-token").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, postgres.NewPasswordResetRepository(mock).DeleteByToken(ctx, "alice@example.com", "reset-token"))
	})

	t.Run("delete by stale token", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM password_resets WHERE email = \$1 AND token = \$2`).
			WithArgs("alice@example.com", "old-token").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := postgres.NewPasswordResetRepository(mock).DeleteByToken(ctx, "alice@example.com", "old-token")
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "RESET_NOT_FOUND")
	})

	t.Run("delete by token failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM password_resets`).WillReturnError(errors.New("read only"))

		err := postgres.NewPasswordResetRepository(mock).DeleteByToken(ctx, "alice@example.com", "reset-token")
		errutil.AssertErrorCode(t, err, "RESET_DELETE_FAILED")
	})
}
