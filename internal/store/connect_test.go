// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellowebapp/hellowebapp/pkg/errutil"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWaitForDatabase_RetriesUntilReady(t *testing.T) {
	db := &flakyPinger{failures: 2}
	opts := PoolOptions{ConnectAttempts: 5, ConnectBackoff: time.Millisecond}

	require.NoError(t, waitForDatabase(context.Background(), db, opts, quietLogger))
	assert.Equal(t, 3, db.calls)
}

func TestWaitForDatabase_GivesUp(t *testing.T) {
	db := &flakyPinger{failures: 100}
	opts := PoolOptions{ConnectAttempts: 3, ConnectBackoff: time.Millisecond}

	err := waitForDatabase(context.Background(), db, opts, quietLogger)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
	errutil.AssertErrorContext(t, err, "attempts", 3)
	assert.Equal(t, 3, db.calls)
}

func TestWaitForDatabase_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := waitForDatabase(ctx, &flakyPinger{failures: 100}, PoolOptions{ConnectBackoff: time.Millisecond}, quietLogger)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz", DefaultPoolOptions(), quietLogger)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}

func TestDefaultPoolOptions(t *testing.T) {
	opts := DefaultPoolOptions()
	assert.Equal(t, int32(10), opts.MaxConns)
	assert.Equal(t, int32(3), opts.MinConns)
	assert.Positive(t, opts.ConnectAttempts)
}
