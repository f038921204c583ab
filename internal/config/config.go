// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

// Package config loads the service configuration from defaults, an optional
// YAML file, environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"log/slog"
	"net"
	"net/mail"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

// Environments accepted for Env.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Mail drivers accepted for Mail.Driver.
const (
	MailDriverSendGrid = "sendgrid"
	MailDriverLog      = "log"
)

// Config is the immutable service configuration.
type Config struct {
	// Env is the deployment environment, read from NODE_ENV.
	Env string `json:"env,omitempty" koanf:"env" jsonschema:"enum=development,enum=production,enum=test"`
	// Origin is the browser origin allowed by CORS. "true" reflects any origin.
	Origin string `json:"origin,omitempty" koanf:"origin"`
	// PublicURL, when set, is the origin mail links point at instead of the request host.
	PublicURL string `json:"public_url,omitempty" koanf:"public_url" jsonschema:"format=uri"`

	HTTP     HTTPConfig     `json:"http,omitempty" koanf:"http"`
	Database DatabaseConfig `json:"database,omitempty" koanf:"database"`
	Mail     MailConfig     `json:"mail,omitempty" koanf:"mail"`
	Secrets  SecretsConfig  `json:"secrets,omitempty" koanf:"secrets"`
	Tokens   TokensConfig   `json:"tokens,omitempty" koanf:"tokens"`
	Log      LogConfig      `json:"log,omitempty" koanf:"log"`
}

// HTTPConfig configures the API and observability listeners.
type HTTPConfig struct {
	Host string `json:"host,omitempty" koanf:"host"`
	Port int    `json:"port,omitempty" koanf:"port" jsonschema:"minimum=1,maximum=65535"`
	// MetricsAddr is the observability listener; empty disables it.
	MetricsAddr     string        `json:"metrics_addr,omitempty" koanf:"metrics_addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout,omitempty" koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string `json:"url,omitempty" koanf:"url"`
	MaxConns        int32  `json:"max_conns,omitempty" koanf:"max_conns" jsonschema:"minimum=1"`
	MinConns        int32  `json:"min_conns,omitempty" koanf:"min_conns" jsonschema:"minimum=0"`
	ConnectAttempts uint64 `json:"connect_attempts,omitempty" koanf:"connect_attempts" jsonschema:"minimum=1"`
	// AutoMigrate applies pending migrations before serving.
	AutoMigrate bool `json:"auto_migrate,omitempty" koanf:"auto_migrate"`
}

// MailConfig configures mail delivery.
type MailConfig struct {
	Driver  string `json:"driver,omitempty" koanf:"driver" jsonschema:"enum=sendgrid,enum=log"`
	APIKey  string `json:"api_key,omitempty" koanf:"api_key"`
	Address string `json:"address,omitempty" koanf:"address"`
}

// SecretsConfig holds the four independent signing secrets.
type SecretsConfig struct {
	MailSignature string `json:"mail_signature,omitempty" koanf:"mail_signature"`
	AccessToken   string `json:"access_token,omitempty" koanf:"access_token"`
	RefreshToken  string `json:"refresh_token,omitempty" koanf:"refresh_token"`
	PasswordReset string `json:"password_reset,omitempty" koanf:"password_reset"`
}

// TokensConfig holds lifetimes and the hashing cost.
type TokensConfig struct {
	AccessTTL      time.Duration `json:"access_ttl,omitempty" koanf:"access_ttl"`
	RefreshTTL     time.Duration `json:"refresh_ttl,omitempty" koanf:"refresh_ttl"`
	IdentityWindow time.Duration `json:"identity_window,omitempty" koanf:"identity_window"`
	ResetWindow    time.Duration `json:"reset_window,omitempty" koanf:"reset_window"`
	BcryptCost     int           `json:"bcrypt_cost,omitempty" koanf:"bcrypt_cost" jsonschema:"minimum=4,maximum=31"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `json:"format,omitempty" koanf:"format" jsonschema:"enum=json,enum=text"`
	Level  string `json:"level,omitempty" koanf:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// IsProduction reports whether Env is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// ListenAddr is the API listen address.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}

// Validate reports every invalid or missing setting at once.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Env, validation.In(EnvDevelopment, EnvProduction, EnvTest)),
		validation.Field(&c.Origin, validation.Required.Error("is required (ORIGIN)")),
		validation.Field(&c.PublicURL, is.URL),
		validation.Field(&c.HTTP),
		validation.Field(&c.Database),
		validation.Field(&c.Mail),
		validation.Field(&c.Secrets),
		validation.Field(&c.Tokens),
		validation.Field(&c.Log),
	)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}

// Validate implements validation.Validatable.
func (h HTTPConfig) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Port, validation.Min(1), validation.Max(65535)),
		validation.Field(&h.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.URL, validation.Required.Error("is required (DATABASE_URL)")),
		validation.Field(&d.MaxConns, validation.Min(int32(1))),
		validation.Field(&d.MinConns, validation.Min(int32(0)), validation.Max(d.MaxConns)),
		validation.Field(&d.ConnectAttempts, validation.Min(uint64(1))),
	)
}

// Validate implements validation.Validatable. Key and sender address are
// only required when mail goes out through SendGrid.
func (m MailConfig) Validate() error {
	keyRules := []validation.Rule{}
	addressRules := []validation.Rule{validation.By(mailAddress)}
	if m.Driver == MailDriverSendGrid {
		keyRules = append(keyRules, validation.Required.Error("is required (MAIL_API_KEY)"))
		addressRules = append([]validation.Rule{validation.Required.Error("is required (MAIL_ADDRESS)")}, addressRules...)
	}
	return validation.ValidateStruct(&m,
		validation.Field(&m.Driver, validation.Required, validation.In(MailDriverSendGrid, MailDriverLog)),
		validation.Field(&m.APIKey, keyRules...),
		validation.Field(&m.Address, addressRules...),
	)
}

// Validate implements validation.Validatable.
func (s SecretsConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.MailSignature, validation.Required.Error("is required (MAIL_SIGNATURE_SECRET)")),
		validation.Field(&s.AccessToken, validation.Required.Error("is required (ACCESS_TOKEN_SECRET)")),
		validation.Field(&s.RefreshToken, validation.Required.Error("is required (REFRESH_TOKEN_SECRET)")),
		validation.Field(&s.PasswordReset, validation.Required.Error("is required (PASSWORD_RESET_TOKEN_SECRET)")),
	)
}

// Validate implements validation.Validatable.
func (t TokensConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.AccessTTL, validation.Required),
		validation.Field(&t.RefreshTTL, validation.Required),
		validation.Field(&t.IdentityWindow, validation.Required),
		validation.Field(&t.ResetWindow, validation.Required),
		validation.Field(&t.BcryptCost, validation.Min(4), validation.Max(31)),
	)
}

// Validate implements validation.Validatable.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Format, validation.In("json", "text")),
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}

// LogValue keeps secrets out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.Env),
		slog.String("origin", c.Origin),
		slog.String("public_url", c.PublicURL),
		slog.String("listen_addr", c.ListenAddr()),
		slog.String("metrics_addr", c.HTTP.MetricsAddr),
		slog.String("mail_driver", c.Mail.Driver),
		slog.String("mail_address", c.Mail.Address),
		slog.Duration("access_ttl", c.Tokens.AccessTTL),
		slog.Duration("refresh_ttl", c.Tokens.RefreshTTL),
		slog.Bool("auto_migrate", c.Database.AutoMigrate),
	)
}

// mailAddress accepts a bare address such as noreply@example.com.
func mailAddress(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return errors.New("must be a valid email address")
	}
	return nil
}
