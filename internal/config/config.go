// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads accountd configuration from built-in defaults, an
// optional YAML file and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/logging"
	"github.com/holomush/accountd/internal/xdg"
)

// Environment variables that supply secrets left unset by file and flags.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvSessionSecret = "ACCOUNTD_SESSION_SECRET"
)

// ConfigFlag names the flag holding an explicit config file path.
const ConfigFlag = "config"

// Default values.
const (
	DefaultHTTPAddr      = "127.0.0.1:8080"
	DefaultMetricsAddr   = "127.0.0.1:9100"
	DefaultLogFormat     = "json"
	DefaultLogLevel      = "info"
	DefaultSessionIssuer = "accountd"
	DefaultSweepInterval = 10 * time.Minute
	DefaultSMTPPort      = 587
)

// Config is the full accountd configuration.
type Config struct {
	DatabaseURL string `koanf:"database-url"`
	HTTPAddr    string `koanf:"http-addr"`
	MetricsAddr string `koanf:"metrics-addr"`
	LogFormat   string `koanf:"log-format"`
	LogLevel    string `koanf:"log-level"`
	AutoMigrate bool   `koanf:"auto-migrate"`

	SessionSecret string        `koanf:"session-secret"`
	SessionIssuer string        `koanf:"session-issuer"`
	SessionTTL    time.Duration `koanf:"session-ttl"`

	VerificationTTL    time.Duration `koanf:"verification-ttl"`
	ResetTTL           time.Duration `koanf:"reset-ttl"`
	SweepInterval      time.Duration `koanf:"sweep-interval"`
	RequireActiveLogin bool          `koanf:"require-active-login"`

	AllowedEmailDomains []string `koanf:"allowed-email-domains"`

	SMTPHost     string `koanf:"smtp-host"`
	SMTPPort     int    `koanf:"smtp-port"`
	SMTPUsername string `koanf:"smtp-username"`
	SMTPPassword string `koanf:"smtp-password"`
	SMTPFrom     string `koanf:"smtp-from"`
}

// RegisterFlags adds every configuration key to fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "PostgreSQL connection URL (default: $"+EnvDatabaseURL+")")
	fs.String("http-addr", DefaultHTTPAddr, "HTTP API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "minimum log level (debug, info, warn or error)")
	fs.Bool("auto-migrate", false, "apply pending database migrations on startup")

	fs.String("session-secret", "", "HMAC secret for session tokens, at least 32 bytes (default: $"+EnvSessionSecret+")")
	fs.String("session-issuer", DefaultSessionIssuer, "issuer claim of session tokens")
	fs.Duration("session-ttl", 0, "session token lifetime (0 = no expiry)")

	fs.Duration("verification-ttl", auth.DefaultVerificationTTL, "verification token lifetime (0 = no expiry)")
	fs.Duration("reset-ttl", auth.DefaultResetTTL, "password reset token lifetime (0 = no expiry)")
	fs.Duration("sweep-interval", DefaultSweepInterval, "interval between expired token sweeps (0 = disabled)")
	fs.Bool("require-active-login", false, "reject logins for accounts that are not verified")
	fs.StringSlice("allowed-email-domains", nil, "glob patterns of email domains allowed to register (empty = any)")

	fs.String("smtp-host", "", "SMTP server for token emails (empty = log tokens instead)")
	fs.Int("smtp-port", DefaultSMTPPort, "SMTP server port")
	fs.String("smtp-username", "", "SMTP username")
	fs.String("smtp-password", "", "SMTP password")
	fs.String("smtp-from", "", "sender address for token emails")
}

// Load reads the config file named by the --config flag (or the default file
// under the XDG config directory when it exists), then applies changed flags
// over it. Unchanged flags supply defaults for keys the file leaves out.
func Load(fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	k := koanf.New(".")

	path, explicit := configPath(fs)
	if _, err := os.Stat(path); explicit || !errors.Is(err, os.ErrNotExist) {
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "load flags").
			Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal").
			Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = getenv(EnvDatabaseURL)
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = getenv(EnvSessionSecret)
	}
	return &cfg, nil
}

// loadFile validates the YAML file at path against the config schema and
// loads it into k.
func loadFile(k *koanf.Koanf, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").
			With("path", path).
			Wrap(err)
	}
	if err := ValidateFile(data); err != nil {
		return oops.With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").
			With("path", path).
			Wrap(err)
	}
	return nil
}

func configPath(fs *pflag.FlagSet) (path string, explicit bool) {
	if f := fs.Lookup(ConfigFlag); f != nil && f.Value.String() != "" {
		return f.Value.String(), true
	}
	return xdg.ConfigFile(), false
}

// ValidateDatabase checks the settings needed to reach the database.
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database-url is required (flag, config file or $%s)", EnvDatabaseURL)
	}
	return nil
}

// Validate checks the settings needed to serve the API.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http-addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return oops.Code("CONFIG_INVALID").
			Errorf("log-level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.SessionSecret == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("session-secret is required (flag, config file or $%s)", EnvSessionSecret)
	}
	if len(c.SessionSecret) < auth.MinSessionSecretBytes {
		return oops.Code("CONFIG_INVALID").
			Errorf("session-secret must be at least %d bytes", auth.MinSessionSecretBytes)
	}
	for name, d := range map[string]time.Duration{
		"session-ttl":      c.SessionTTL,
		"verification-ttl": c.VerificationTTL,
		"reset-ttl":        c.ResetTTL,
		"sweep-interval":   c.SweepInterval,
	} {
		if d < 0 {
			return oops.Code("CONFIG_INVALID").Errorf("%s cannot be negative, got %s", name, d)
		}
	}
	if _, err := auth.NewDomainMatcher(c.AllowedEmailDomains); err != nil {
		return oops.Code("CONFIG_INVALID").
			Errorf("allowed-email-domains: %v", err)
	}
	if c.SMTPHost != "" {
		if c.SMTPFrom == "" {
			return oops.Code("CONFIG_INVALID").Errorf("smtp-from is required when smtp-host is set")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return oops.Code("CONFIG_INVALID").Errorf("smtp-port must be between 1 and 65535, got %d", c.SMTPPort)
		}
	}
	return nil
}

// Policy returns the auth policy described by the configuration.
func (c *Config) Policy() auth.Policy {
	return auth.Policy{
		VerificationTTL:     c.VerificationTTL,
		ResetTTL:            c.ResetTTL,
		RequireActiveLogin:  c.RequireActiveLogin,
		AllowedEmailDomains: c.AllowedEmailDomains,
	}
}

// Session returns the session issuer configuration.
func (c *Config) Session() auth.SessionConfig {
	return auth.SessionConfig{
		Secret: []byte(c.SessionSecret),
		Issuer: c.SessionIssuer,
		TTL:    c.SessionTTL,
	}
}

// String renders the configuration with secrets redacted.
func (c Config) String() string {
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "<redacted>"
	}
	c.DatabaseURL = redact(c.DatabaseURL)
	c.SessionSecret = redact(c.SessionSecret)
	c.SMTPPassword = redact(c.SMTPPassword)
	type plain Config
	return fmt.Sprintf("%+v", plain(c))
}
