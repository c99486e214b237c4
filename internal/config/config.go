// Package config provides YAML-based configuration loading for Folio.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Folio configuration, loaded from folio.yaml.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Log         LogConfig         `yaml:"log"`
	Notify      NotifyConfig      `yaml:"notify"`
	Media       MediaConfig       `yaml:"media"`
	GitHub      GitHubConfig      `yaml:"github"`
}

// SiteConfig describes the public site.
type SiteConfig struct {
	Title   string `yaml:"title"`
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig holds connection settings. Driver is "mysql" or "sqlite".
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite file
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int    `yaml:"port"`
	AdminToken string `yaml:"admin_token"`
}

// PersistenceConfig tunes the optimistic stores.
type PersistenceConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// NotifyConfig configures outbound admin notifications.
type NotifyConfig struct {
	Slack          SlackConfig   `yaml:"slack"`
	Discord        DiscordConfig `yaml:"discord"`
	DigestSchedule string        `yaml:"digest_schedule"`
}

// SlackConfig holds Slack bot settings.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// MediaConfig configures on-disk upload storage.
type MediaConfig struct {
	Root     string `yaml:"root"`
	BaseURL  string `yaml:"base_url"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// GitHubConfig configures project import.
type GitHubConfig struct {
	Owner string `yaml:"owner"`
	Token string `yaml:"token"`
}

// Enabled reports whether Slack notifications are configured.
func (s SlackConfig) Enabled() bool { return s.BotToken != "" && s.Channel != "" }

// Enabled reports whether Discord notifications are configured.
func (d DiscordConfig) Enabled() bool { return d.BotToken != "" && d.Channel != "" }

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets secrets live outside the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FOLIO_ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := os.Getenv("FOLIO_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Notify.Slack.BotToken = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.Notify.Discord.BotToken = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Portfolio"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	switch c.Database.Driver {
	case "mysql":
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "folio"
		}
	case "sqlite":
		if c.Database.Path == "" {
			c.Database.Path = "folio.db"
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Persistence.Timeout == 0 {
		c.Persistence.Timeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Notify.DigestSchedule == "" {
		c.Notify.DigestSchedule = "0 8 * * *"
	}
	if c.Media.Root == "" {
		c.Media.Root = "media"
	}
	if c.Media.BaseURL == "" {
		c.Media.BaseURL = strings.TrimRight(c.Site.BaseURL, "/") + "/media"
	}
	if c.Media.MaxBytes == 0 {
		c.Media.MaxBytes = 10 << 20
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (mysql, sqlite)", c.Database.Driver))
	}
	if c.Server.AdminToken == "" {
		errs = append(errs, "server.admin_token is required")
	}
	if c.Persistence.Timeout < 0 {
		errs = append(errs, "persistence.timeout must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not supported", c.Log.Level))
	}
	if _, err := cron.ParseStandard(c.Notify.DigestSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("notify.digest_schedule: %v", err))
	}
	if c.Notify.Slack.BotToken != "" && c.Notify.Slack.Channel == "" {
		errs = append(errs, "notify.slack.channel is required when a bot token is set")
	}
	if c.Notify.Discord.BotToken != "" && c.Notify.Discord.Channel == "" {
		errs = append(errs, "notify.discord.channel is required when a bot token is set")
	}
	if c.Media.MaxBytes < 0 {
		errs = append(errs, "media.max_bytes must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
