// Package config loads sheetclock's YAML configuration.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/sadopc/sheetclock/internal/identity"
)

type Config struct {
	User     UserConfig     `yaml:"user" mapstructure:"user"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Remote   RemoteConfig   `yaml:"remote" mapstructure:"remote"`
	Sheet    SheetConfig    `yaml:"sheet" mapstructure:"sheet"`
	Google   GoogleConfig   `yaml:"google" mapstructure:"google"`
	Sync     SyncConfig     `yaml:"sync" mapstructure:"sync"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

// UserConfig holds the credential this device presents.
type UserConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// AuthConfig lists the credentials the local verifier and the API server accept.
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens" mapstructure:"tokens"`
}

type TokenConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	User    string `yaml:"user" mapstructure:"user"`
	Expires string `yaml:"expires,omitempty" mapstructure:"expires"` // RFC 3339, empty for never
}

type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type LogConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Level string `yaml:"level" mapstructure:"level"`
}

// RemoteConfig points the client at a sheetclock server instead of the local
// database and spreadsheet credentials.
type RemoteConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

type SheetConfig struct {
	SpreadsheetID  string            `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	Name           string            `yaml:"name" mapstructure:"name"`
	Columns        map[string]string `yaml:"columns" mapstructure:"columns"`
	Required       []string          `yaml:"required" mapstructure:"required"`
	TimeFormat     string            `yaml:"time_format" mapstructure:"time_format"`
	Timezone       string            `yaml:"timezone" mapstructure:"timezone"`
	ValueInput     string            `yaml:"value_input" mapstructure:"value_input"`
	DurationFormat string            `yaml:"duration_format" mapstructure:"duration_format"`
}

type GoogleConfig struct {
	AccessToken     string `yaml:"access_token" mapstructure:"access_token"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	Endpoint        string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// Enabled reports whether any Google credential is configured.
func (g GoogleConfig) Enabled() bool {
	return g.AccessToken != "" || g.CredentialsFile != ""
}

type SyncConfig struct {
	Timeout       string `yaml:"timeout" mapstructure:"timeout"`
	RetryInterval string `yaml:"retry_interval" mapstructure:"retry_interval"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
}

func (s SyncConfig) TimeoutDuration() time.Duration {
	return parseDuration(s.Timeout, 15*time.Second)
}

func (s SyncConfig) RetryIntervalDuration() time.Duration {
	return parseDuration(s.RetryInterval, time.Minute)
}

type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Grants converts the token list for identity.NewStaticVerifier. Entries with
// an unparsable expiry are skipped rather than accepted forever.
func (a AuthConfig) Grants() map[string]identity.Grant {
	grants := make(map[string]identity.Grant, len(a.Tokens))
	for _, t := range a.Tokens {
		g := identity.Grant{UserID: strings.TrimSpace(t.User)}
		if t.Expires != "" {
			exp, err := time.Parse(time.RFC3339, t.Expires)
			if err != nil {
				continue
			}
			g.Expires = exp
		}
		grants[t.Token] = g
	}
	return grants
}

// SlogLevel maps the configured level name, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
