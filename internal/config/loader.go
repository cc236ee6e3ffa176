package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. SHEETCLOCK_SHEET_SPREADSHEET_ID.
const EnvPrefix = "SHEETCLOCK"

// DefaultUser is the user id written by WriteDefault.
const DefaultUser = "local"

// Dir returns ~/.config/sheetclock
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "sheetclock")
}

// DefaultPath returns the path Load reads when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultColumns is the layout written by WriteDefault: one column per field,
// A through K.
func DefaultColumns() map[string]string {
	return map[string]string{
		"id":              "A",
		"status":          "B",
		"title":           "C",
		"startedAt":       "D",
		"endedAt":         "E",
		"durationSeconds": "F",
		"project":         "G",
		"tags":            "H",
		"skill":           "I",
		"intensity":       "J",
		"notes":           "K",
	}
}

// DefaultConfig returns the configuration used for keys that are not set.
// Column mapping and required fields stay empty here; Load fills them only
// when the file leaves them out so defaults never merge into a user mapping.
func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(dir, "sheetclock.db")},
		Log:      LogConfig{Path: filepath.Join(dir, "sheetclock.log"), Level: "info"},
		Sheet: SheetConfig{
			Name:           "Sheet1",
			TimeFormat:     "2006-01-02 15:04:05",
			Timezone:       "UTC",
			ValueInput:     "USER_ENTERED",
			DurationFormat: "seconds",
		},
		Sync:   SyncConfig{Timeout: "15s", RetryInterval: "1m", MaxRetries: 5},
		Server: ServerConfig{Addr: "127.0.0.1:8787"},
	}
}

// Load reads the YAML file at path (DefaultPath when empty) and applies
// SHEETCLOCK_* environment overrides. A missing default file is not an error;
// a missing explicit file is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Sheet.Columns) == 0 {
		cfg.Sheet.Columns = DefaultColumns()
	}
	return cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can override keys the
// file does not mention.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("user.token", d.User.Token)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("remote.url", d.Remote.URL)
	v.SetDefault("sheet.spreadsheet_id", d.Sheet.SpreadsheetID)
	v.SetDefault("sheet.name", d.Sheet.Name)
	v.SetDefault("sheet.time_format", d.Sheet.TimeFormat)
	v.SetDefault("sheet.timezone", d.Sheet.Timezone)
	v.SetDefault("sheet.value_input", d.Sheet.ValueInput)
	v.SetDefault("sheet.duration_format", d.Sheet.DurationFormat)
	v.SetDefault("google.access_token", d.Google.AccessToken)
	v.SetDefault("google.credentials_file", d.Google.CredentialsFile)
	v.SetDefault("google.endpoint", d.Google.Endpoint)
	v.SetDefault("sync.timeout", d.Sync.Timeout)
	v.SetDefault("sync.retry_interval", d.Sync.RetryInterval)
	v.SetDefault("sync.max_retries", d.Sync.MaxRetries)
	v.SetDefault("server.addr", d.Server.Addr)
}

const header = `# sheetclock configuration
#
# sheet.columns maps each field to a column letter ("C") or to the header text
# in row 1 ("Start time"). Every key can be overridden from the environment,
# e.g. SHEETCLOCK_SHEET_SPREADSHEET_ID.

`

// WriteDefault writes a starter configuration. A non-empty token is accepted
// for DefaultUser and presented by this device. The file is created 0600 and
// an existing file is never overwritten.
func WriteDefault(path, token string) error {
	cfg := DefaultConfig()
	cfg.Sheet.Columns = DefaultColumns()
	cfg.Sheet.Required = []string{"id", "status", "title", "startedAt"}
	if token != "" {
		cfg.User.Token = token
		cfg.Auth.Tokens = []TokenConfig{{Token: token, User: DefaultUser}}
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(header); err != nil {
		return err
	}
	_, err = f.Write(body)
	return err
}

// Render returns cfg as YAML with credentials masked.
func Render(cfg *Config) (string, error) {
	c := *cfg
	c.User.Token = mask(c.User.Token)
	c.Google.AccessToken = mask(c.Google.AccessToken)
	c.Auth.Tokens = make([]TokenConfig, len(cfg.Auth.Tokens))
	for i, t := range cfg.Auth.Tokens {
		t.Token = mask(t.Token)
		c.Auth.Tokens[i] = t
	}
	body, err := yaml.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(body), nil
}

func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****"
}
