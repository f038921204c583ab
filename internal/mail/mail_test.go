// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package mail_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellowebapp/hellowebapp/internal/mail"
)

func TestIdentityMessage(t *testing.T) {
	link := "https://example.com/api/auth/verify/identify/01H/abc?expires=1&signature=xyz"
	msg, err := mail.IdentityMessage("Hello Web App", "alice@example.com", "Alice", link, 2*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "[Hello Web App] Please verify your email address", msg.Subject)
	assert.Contains(t, msg.HTML, "Alice,")
	assert.Contains(t, msg.HTML, `href="https://example.com/api/auth/verify/identify/01H/abc?expires=1&amp;signature=xyz"`)
	assert.Contains(t, msg.HTML, "expires 2 hour(s)")
}

func TestResetMessage(t *testing.T) {
	msg, err := mail.ResetMessage("Hello Web App", "alice@example.com", "<b>Alice</b>",
		"https://example.com/api/auth/reset-password/tok?email=alice%40example.com", 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "[Hello Web App] Password reset instructions", msg.Subject)
	assert.Contains(t, msg.HTML, "&lt;b&gt;Alice&lt;/b&gt;")
	assert.Contains(t, msg.HTML, "expires 1 hour(s)")
	assert.Contains(t, msg.HTML, "/api/auth/reset-password/tok?email=alice%40example.com")
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := mail.NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := sender.Send(context.Background(), mail.Message{To: "alice@example.com", Subject: "hi", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"alice@example.com"`)
	assert.Contains(t, buf.String(), `"subject":"hi"`)
}

func TestLogSender_DefaultLogger(t *testing.T) {
	assert.NotNil(t, mail.NewLogSender(nil))
}
