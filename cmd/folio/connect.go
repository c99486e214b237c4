package main

import (
	"fmt"

	"github.com/zulandar/folio/internal/config"
	"github.com/zulandar/folio/internal/db"
	"github.com/zulandar/folio/internal/logging"
	"github.com/zulandar/folio/internal/notify"
	"github.com/zulandar/folio/internal/notify/discord"
	"github.com/zulandar/folio/internal/notify/slack"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s database: %w", cfg.Database.Driver, err)
	}

	return cfg, gormDB, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// notifierFromConfig fans out to every configured channel. It returns nil
// when none is configured.
func notifierFromConfig(cfg *config.Config) (notify.Notifier, error) {
	var out notify.Multi
	if cfg.Notify.Slack.Enabled() {
		n, err := slack.New(slack.Options{BotToken: cfg.Notify.Slack.BotToken, Channel: cfg.Notify.Slack.Channel})
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if cfg.Notify.Discord.Enabled() {
		n, err := discord.New(discord.Options{BotToken: cfg.Notify.Discord.BotToken, Channel: cfg.Notify.Discord.Channel})
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
