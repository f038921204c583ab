// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix namespaces environment overrides for keys without a legacy name:
// HELLOWEBAPP_LOG__LEVEL sets log.level.
const EnvPrefix = "HELLOWEBAPP_"

// legacyEnv maps the deployment's established variable names to config keys.
var legacyEnv = map[string]string{
	"NODE_ENV":                    "env",
	"ORIGIN":                      "origin",
	"PORT":                        "http.port",
	"DATABASE_URL":                "database.url",
	"MAIL_API_KEY":                "mail.api_key",
	"MAIL_ADDRESS":                "mail.address",
	"MAIL_SIGNATURE_SECRET":       "secrets.mail_signature",
	"ACCESS_TOKEN_SECRET":         "secrets.access_token",
	"REFRESH_TOKEN_SECRET":        "secrets.refresh_token",
	"PASSWORD_RESET_TOKEN_SECRET": "secrets.password_reset",
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"origin":       "origin",
	"public-url":   "public_url",
	"host":         "http.host",
	"port":         "http.port",
	"metrics-addr": "http.metrics_addr",
	"auto-migrate": "database.auto_migrate",
	"mail-driver":  "mail.driver",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"env":                       EnvDevelopment,
		"http.host":                 "",
		"http.port":                 8080,
		"http.metrics_addr":         "127.0.0.1:9100",
		"http.shutdown_timeout":     10 * time.Second,
		"database.max_conns":        int32(10),
		"database.min_conns":        int32(3),
		"database.connect_attempts": uint64(5),
		"database.auto_migrate":     false,
		"mail.driver":               MailDriverSendGrid,
		"tokens.access_ttl":         10 * time.Minute,
		"tokens.refresh_ttl":        30 * 24 * time.Hour,
		"tokens.identity_window":    time.Hour,
		"tokens.reset_window":       time.Hour,
		"tokens.bcrypt_cost":        10,
		"log.format":                "json",
		"log.level":                 "info",
	}
}

// Options selects the optional sources Load reads.
type Options struct {
	// File is a YAML config file. It is validated against the schema before use.
	File string
	// Flags are the parsed command-line flags; only changed flags override.
	Flags *pflag.FlagSet
}

// Load assembles the configuration. It does not call Validate.
func Load(opts Options) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("file", opts.File).Wrap(err)
		}
		if err := ValidateSchema(data); err != nil {
			return Config{}, oops.With("file", opts.File).Wrap(err)
		}
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("file", opts.File).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagKey), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	return cfg, nil
}

// envKey maps an environment variable to a config key, or "" to skip it.
// Empty values are skipped so that they never blank out a default.
func envKey(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	if key, ok := legacyEnv[name]; ok {
		return key, value
	}
	if rest, ok := strings.CutPrefix(name, EnvPrefix); ok && rest != "" {
		return strings.ToLower(strings.ReplaceAll(rest, "__", ".")), value
	}
	return "", nil
}

func flagKey(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok {
		return "", nil
	}
	return key, f.Value.String()
}
