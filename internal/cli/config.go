package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	timeline "github.com/anatolykoptev/go-timeline"
)

// Config is the YAML configuration file.
type Config struct {
	// Accounts are rotated per call. When empty, Auth is used.
	Accounts []AccountConfig `yaml:"accounts"`

	Auth struct {
		AuthToken string `yaml:"auth_token"`
		CT0       string `yaml:"ct0"`
		Language  string `yaml:"language"`
		// Cookie is a copied browser Cookie header; it wins over the fields above.
		Cookie string `yaml:"cookie"`
	} `yaml:"auth"`

	Proxy struct {
		URL    string `yaml:"url"`
		Jitter bool   `yaml:"jitter"`
	} `yaml:"proxy"`

	Client struct {
		KeepRaw         bool          `yaml:"keep_raw"`
		MaxCooldownWait time.Duration `yaml:"max_cooldown_wait"`
	} `yaml:"client"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	Output struct {
		Format string `yaml:"format"`
	} `yaml:"output"`

	Watch struct {
		Interval      time.Duration `yaml:"interval"`
		Backfill      int           `yaml:"backfill"`
		Users         []string      `yaml:"users"`
		Searches      []string      `yaml:"searches"`
		Notifications bool          `yaml:"notifications"`
	} `yaml:"watch"`
}

// AccountConfig is one entry of the accounts section.
type AccountConfig struct {
	Username  string `yaml:"username"`
	AuthToken string `yaml:"auth_token"`
	CT0       string `yaml:"ct0"`
	Language  string `yaml:"language"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Metrics.Addr = ":9090"
	cfg.Output.Format = "json"
	cfg.Watch.Interval = 5 * time.Minute
	cfg.Watch.Backfill = 40
	return cfg
}

// loadConfig reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func loadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets TIMELINE_* variables override the auth section.
func (c *Config) applyEnv() {
	if v := os.Getenv("TIMELINE_AUTH_TOKEN"); v != "" {
		c.Auth.AuthToken = v
	}
	if v := os.Getenv("TIMELINE_CT0"); v != "" {
		c.Auth.CT0 = v
	}
	if v := os.Getenv("TIMELINE_LANG"); v != "" {
		c.Auth.Language = v
	}
	if v := os.Getenv("TIMELINE_PROXY"); v != "" {
		c.Proxy.URL = v
	}
}

func (c *Config) validate() error {
	switch c.Output.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("output.format must be json or yaml, got %q", c.Output.Format)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	for i, a := range c.Accounts {
		if a.Username == "" || a.AuthToken == "" {
			return fmt.Errorf("accounts[%d]: username and auth_token are required", i)
		}
	}
	if c.Watch.Interval < 0 || c.Watch.Backfill < 0 {
		return errors.New("watch: interval and backfill must not be negative")
	}
	return nil
}

// sessionContext picks the credential source: accounts, then cookie, then
// the auth fields.
func (c *Config) sessionContext() timeline.SessionContext {
	if len(c.Accounts) > 0 {
		accounts := make([]*timeline.Account, 0, len(c.Accounts))
		for i, a := range c.Accounts {
			acc := timeline.NewAccount(a.Username, a.AuthToken, a.CT0)
			acc.Language = a.Language
			timeline.AssignBrowserProfile(acc, i)
			accounts = append(accounts, acc)
		}
		return timeline.NewAccountPool(accounts, timeline.AccountPoolConfig{})
	}
	if raw := os.Getenv("TIMELINE_ACCOUNTS"); raw != "" {
		if accounts := timeline.ParseAccounts(raw); len(accounts) > 0 {
			return timeline.NewAccountPool(accounts, timeline.AccountPoolConfig{})
		}
	}
	if c.Auth.Cookie != "" {
		return timeline.CookieContext{Cookie: c.Auth.Cookie, Language: c.Auth.Language}
	}
	return timeline.StaticContext{
		AuthToken: c.Auth.AuthToken,
		CSRFToken: c.Auth.CT0,
		Language:  c.Auth.Language,
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// setupLogger installs the default slog handler, text or JSON, on stderr.
func setupLogger(c *Config) {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
