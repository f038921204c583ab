// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

// Package mail composes and delivers the service's transactional email.
package mail

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	identityTemplate = template.Must(template.New("identity").Parse(
		`{{.Name}},<br /><br />Thank you for using {{.AppName}}.<br />` +
			`Please open the link below to verify your email address.<br /><br />` +
			`<a href="{{.URL}}">Verify email address</a><br />` +
			`This link expires {{.Hours}} hour(s) after it was sent.`))

	resetTemplate = template.Must(template.New("reset").Parse(
		`{{.Name}},<br /><br />Thank you for using {{.AppName}}.<br />` +
			`Please open the link below to set a new password.<br /><br />` +
			`<a href="{{.URL}}">Reset password</a><br />` +
			`This link expires {{.Hours}} hour(s) after it was sent.`))
)

type linkData struct {
	AppName string
	Name    string
	URL     template.URL
	Hours   int
}

// IdentityMessage composes the email address verification mail.
func IdentityMessage(appName, to, name, link string, window time.Duration) (Message, error) {
	return render(identityTemplate, "["+appName+"] Please verify your email address", to, linkData{
		AppName: appName,
		Name:    name,
		URL:     template.URL(link), //nolint:gosec // link is built by the identity codec
		Hours:   hours(window),
	})
}

// ResetMessage composes the password reset mail.
func ResetMessage(appName, to, name, link string, window time.Duration) (Message, error) {
	return render(resetTemplate, "["+appName+"] Password reset instructions", to, linkData{
		AppName: appName,
		Name:    name,
		URL:     template.URL(link), //nolint:gosec // link is built by the reset codec
		Hours:   hours(window),
	})
}

func render(tmpl *template.Template, subject, to string, data linkData) (Message, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").With("template", tmpl.Name()).Wrap(err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}

func hours(d time.Duration) int {
	h := int(d / time.Hour)
	if h < 1 {
		return 1
	}
	return h
}

// LogSender writes messages to a logger instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default().
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs msg.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail not delivered, log sender in use",
		"to", msg.To,
		"subject", msg.Subject,
		"html", msg.HTML,
	)
	return nil
}
