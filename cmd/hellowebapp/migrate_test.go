// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellowebapp/hellowebapp/pkg/errutil"
)

type fakeMigrator struct {
	version     uint
	dirty       bool
	pending     []uint
	applied     []uint
	upCalled    bool
	downCalled  bool
	forced      *int
	closeCalled bool
	upErr       error
	closeErr    error
}

func (m *fakeMigrator) Up() error                          { m.upCalled = true; return m.upErr }
func (m *fakeMigrator) Down() error                        { m.downCalled = true; return nil }
func (m *fakeMigrator) Version() (uint, bool, error)       { return m.version, m.dirty, nil }
func (m *fakeMigrator) Force(v int) error                  { m.forced = &v; return nil }
func (m *fakeMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }
func (m *fakeMigrator) AppliedMigrations() ([]uint, error) { return m.applied, nil }
func (m *fakeMigrator) Close() error                       { m.closeCalled = true; return m.closeErr }

func runMigrate(t *testing.T, m *fakeMigrator, args ...string) (string, error) {
	t.Helper()
	configFile = ""
	cmd := newMigrateCmd(func(url string) (Migrator, error) {
		assert.Equal(t, "postgres://app@localhost/app", url)
		return m, nil
	})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric returns error", input: "abc", wantErr: true},
		{name: "float stops at the dot", input: "1.5", wantVersion: 1},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "negative parses", input: "-1", wantVersion: -1},
		{name: "empty string returns error", input: "", wantErr: true},
		{name: "whitespace only returns error", input: "   ", wantErr: true},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)

			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantVersion, version)
			}
		})
	}
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := runMigrate(t, &fakeMigrator{}, "up")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestMigrate_Up(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@localhost/app")

	t.Run("applies pending", func(t *testing.T) {
		m := &fakeMigrator{pending: []uint{1, 2}}
		out, err := runMigrate(t, m)
		require.NoError(t, err)
		assert.True(t, m.upCalled)
		assert.True(t, m.closeCalled)
		assert.Contains(t, out, "Applying 2 migration(s)")
	})

	t.Run("nothing pending", func(t *testing.T) {
		m := &fakeMigrator{}
		out, err := runMigrate(t, m, "up")
		require.NoError(t, err)
		assert.False(t, m.upCalled)
		assert.Contains(t, out, "No pending migrations")
	})

	t.Run("up failure still closes", func(t *testing.T) {
		m := &fakeMigrator{pending: []uint{1}, upErr: errors.New("syntax error")}
		_, err := runMigrate(t, m, "up")
		require.Error(t, err)
		assert.True(t, m.closeCalled)
	})

	t.Run("close failure is reported", func(t *testing.T) {
		m := &fakeMigrator{closeErr: errors.New("close failed")}
		_, err := runMigrate(t, m, "up")
		require.Error(t, err)
	})
}

func TestMigrate_Subcommands(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@localhost/app")

	t.Run("down", func(t *testing.T) {
		m := &fakeMigrator{}
		_, err := runMigrate(t, m, "down")
		require.NoError(t, err)
		assert.True(t, m.downCalled)
	})

	t.Run("version", func(t *testing.T) {
		out, err := runMigrate(t, &fakeMigrator{version: 3, dirty: true}, "version")
		require.NoError(t, err)
		assert.Contains(t, out, "Current version: 3 (dirty)")
	})

	t.Run("status", func(t *testing.T) {
		out, err := runMigrate(t, &fakeMigrator{version: 1, applied: []uint{1}, pending: []uint{99}}, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Current version: 1")
		assert.Contains(t, out, "[applied] 000001_")
		assert.Contains(t, out, "[pending] 000099")
	})

	t.Run("force", func(t *testing.T) {
		m := &fakeMigrator{}
		out, err := runMigrate(t, m, "force", "2")
		require.NoError(t, err)
		require.NotNil(t, m.forced)
		assert.Equal(t, 2, *m.forced)
		assert.Contains(t, out, "Forced version 2")
	})

	t.Run("force rejects garbage before connecting", func(t *testing.T) {
		m := &fakeMigrator{}
		_, err := runMigrate(t, m, "force", "abc")
		errutil.AssertErrorCode(t, err, "INVALID_VERSION")
		assert.False(t, m.closeCalled)
	})

	t.Run("unknown argument", func(t *testing.T) {
		_, err := runMigrate(t, &fakeMigrator{}, "sideways")
		require.Error(t, err)
	})
}
