// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package mail

import (
	"context"
	"net/http"

	"github.com/samber/oops"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// sendgridClient abstracts the SendGrid client for testing.
type sendgridClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client sendgridClient
	from   string
}

// NewSendGridSender creates a SendGridSender for apiKey sending as from.
func NewSendGridSender(apiKey, from string) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("mail api key is required")
	}
	if from == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("mail from address is required")
	}
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from}, nil
}

// Send delivers msg. Any non-2xx answer is an error.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	email := sgmail.NewV3MailInit(
		sgmail.NewEmail("", s.from),
		msg.Subject,
		sgmail.NewEmail("", msg.To),
		sgmail.NewContent("text/html", msg.HTML),
	)
	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("to", msg.To).Wrap(err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return oops.Code("MAIL_SEND_FAILED").
			With("to", msg.To).
			With("status", resp.StatusCode).
			Errorf("sendgrid rejected message: %s", resp.Body)
	}
	return nil
}
