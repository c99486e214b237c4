package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullYAML = `
site:
  title: Jane Doe
  base_url: https://jane.dev/

database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  user: folio
  password: s3cret
  name: folio_prod

server:
  port: 9090
  admin_token: tok-123

persistence:
  timeout: 3s

log:
  level: debug
  development: true

notify:
  slack:
    bot_token: xoxb-1
    channel: C123
  digest_schedule: "30 7 * * 1-5"

media:
  root: /var/lib/folio/media
  max_bytes: 2048

github:
  owner: janedoe
`

const minimalYAML = `
server:
  admin_token: tok
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Site.Title != "Jane Doe" {
		t.Errorf("Site.Title = %q, want %q", cfg.Site.Title, "Jane Doe")
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Database.Host != "10.0.0.5" || cfg.Database.Port != 3307 {
		t.Errorf("Database addr = %s:%d, want 10.0.0.5:3307", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.Name != "folio_prod" {
		t.Errorf("Database.Name = %q, want folio_prod", cfg.Database.Name)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Persistence.Timeout != 3*time.Second {
		t.Errorf("Persistence.Timeout = %v, want 3s", cfg.Persistence.Timeout)
	}
	if !cfg.Notify.Slack.Enabled() {
		t.Error("Slack should be enabled")
	}
	if cfg.Notify.Discord.Enabled() {
		t.Error("Discord should not be enabled")
	}
	if cfg.Notify.DigestSchedule != "30 7 * * 1-5" {
		t.Errorf("DigestSchedule = %q", cfg.Notify.DigestSchedule)
	}
	if cfg.Media.MaxBytes != 2048 {
		t.Errorf("Media.MaxBytes = %d, want 2048", cfg.Media.MaxBytes)
	}
	if cfg.Media.BaseURL != "https://jane.dev/media" {
		t.Errorf("Media.BaseURL = %q, want https://jane.dev/media", cfg.Media.BaseURL)
	}
	if cfg.GitHub.Owner != "janedoe" {
		t.Errorf("GitHub.Owner = %q, want janedoe", cfg.GitHub.Owner)
	}
}

func TestParse_MinimalDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "folio.db" {
		t.Errorf("Database.Path = %q, want folio.db", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Persistence.Timeout != 5*time.Second {
		t.Errorf("Persistence.Timeout = %v, want 5s", cfg.Persistence.Timeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Notify.DigestSchedule != "0 8 * * *" {
		t.Errorf("DigestSchedule = %q, want default", cfg.Notify.DigestSchedule)
	}
	if cfg.Media.Root != "media" {
		t.Errorf("Media.Root = %q, want media", cfg.Media.Root)
	}
	if cfg.Media.MaxBytes != 10<<20 {
		t.Errorf("Media.MaxBytes = %d, want 10MiB", cfg.Media.MaxBytes)
	}
}

func TestParse_MySQLDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: mysql\nserver:\n  admin_token: t\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" || cfg.Database.Port != 3306 {
		t.Errorf("Database addr = %s:%d, want 127.0.0.1:3306", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.User != "root" || cfg.Database.Name != "folio" {
		t.Errorf("Database user/name = %s/%s", cfg.Database.User, cfg.Database.Name)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	t.Setenv("FOLIO_ADMIN_TOKEN", "")

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing admin token", "site:\n  title: x\n", "server.admin_token is required"},
		{"bad driver", "database:\n  driver: oracle\nserver:\n  admin_token: t\n", `database.driver "oracle"`},
		{"bad level", "log:\n  level: loud\nserver:\n  admin_token: t\n", `log.level "loud"`},
		{"bad schedule", "notify:\n  digest_schedule: every day\nserver:\n  admin_token: t\n", "notify.digest_schedule"},
		{"slack without channel", "notify:\n  slack:\n    bot_token: x\nserver:\n  admin_token: t\n", "notify.slack.channel"},
		{"discord without channel", "notify:\n  discord:\n    bot_token: x\nserver:\n  admin_token: t\n", "notify.discord.channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_CollectsAllErrors(t *testing.T) {
	t.Setenv("FOLIO_ADMIN_TOKEN", "")
	_, err := Parse([]byte("database:\n  driver: oracle\nlog:\n  level: loud\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"database.driver", "log.level", "server.admin_token"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %q, want to contain %q", err.Error(), want)
		}
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unclosed"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Run("admin token from env", func(t *testing.T) {
		t.Setenv("FOLIO_ADMIN_TOKEN", "env-token")

		cfg, err := Parse([]byte("site:\n  title: x\n"))
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.Server.AdminToken)
	})

	t.Run("env wins over file", func(t *testing.T) {
		t.Setenv("FOLIO_DB_PASSWORD", "from-env")
		t.Setenv("GITHUB_TOKEN", "gh-env")

		cfg, err := Parse([]byte(fullYAML))
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Database.Password)
		assert.Equal(t, "gh-env", cfg.GitHub.Token)
	})

	t.Run("chat tokens", func(t *testing.T) {
		t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")
		t.Setenv("DISCORD_BOT_TOKEN", "disc-env")

		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "xoxb-env", cfg.Notify.Slack.BotToken)
		assert.Equal(t, "disc-env", cfg.Notify.Discord.BotToken)
	})
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.AdminToken != "tok" {
		t.Errorf("AdminToken = %q, want tok", cfg.Server.AdminToken)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q", err.Error())
	}
}
