// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/hellowebapp/hellowebapp/internal/auth"
	"github.com/hellowebapp/hellowebapp/internal/auth/postgres"
	"github.com/hellowebapp/hellowebapp/internal/config"
	"github.com/hellowebapp/hellowebapp/internal/mail"
)

// newService wires the account service over db.
func newService(cfg config.Config, db postgres.DB, sender mail.Sender, clock auth.Clock, logger *slog.Logger) (*auth.Service, error) {
	users := postgres.NewUserRepository(db)
	sessions := postgres.NewSessionRepository(db)
	resets := postgres.NewPasswordResetRepository(db)
	tx := postgres.NewTransactor(db)

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte(cfg.Secrets.AccessToken),
		RefreshSecret: []byte(cfg.Secrets.RefreshToken),
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
	}, sessions, tx, clock, logger)
	if err != nil {
		return nil, oops.With("component", "tokens").Wrap(err)
	}

	identity, err := auth.NewIdentityCodec([]byte(cfg.Secrets.MailSignature), auth.DefaultAppName, cfg.Tokens.IdentityWindow, clock)
	if err != nil {
		return nil, oops.With("component", "identity").Wrap(err)
	}

	resetCodec, err := auth.NewResetCodec(auth.ResetCodecConfig{
		Secret: []byte(cfg.Secrets.PasswordReset),
		Window: cfg.Tokens.ResetWindow,
		Clock:  clock,
		Logger: logger,
	}, resets, tx)
	if err != nil {
		return nil, oops.With("component", "resets").Wrap(err)
	}

	svc, err := auth.NewService(auth.ServiceDeps{
		Users:    users,
		Sessions: sessions,
		Tx:       tx,
		Hasher:   auth.NewBcryptHasher(cfg.Tokens.BcryptCost),
		Tokens:   tokens,
		Identity: identity,
		Resets:   resetCodec,
		Mailer:   sender,
		Clock:    clock,
		Logger:   logger,
	})
	if err != nil {
		return nil, oops.With("component", "service").Wrap(err)
	}
	return svc, nil
}

// newSender returns the mail sender selected by cfg.Driver.
func newSender(cfg config.MailConfig, logger *slog.Logger) (mail.Sender, error) {
	switch cfg.Driver {
	case config.MailDriverLog:
		return mail.NewLogSender(logger), nil
	case config.MailDriverSendGrid, "":
		sender, err := mail.NewSendGridSender(cfg.APIKey, cfg.Address)
		if err != nil {
			return nil, oops.With("driver", cfg.Driver).Wrap(err)
		}
		return sender, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Driver).Errorf("unknown mail driver %q", cfg.Driver)
	}
}
