package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/folio/internal/db"
	"github.com/zulandar/folio/internal/notify"
	"github.com/zulandar/folio/internal/server"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Serves the public portfolio API and the admin API, and sends the scheduled message digest when a notifier is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Folio config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: server.port from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	notifier, err := notifierFromConfig(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		DB:       gormDB,
		Config:   cfg,
		Logger:   log,
		Notifier: notifier,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	if notifier != nil {
		digest := notify.NewDigest(gormDB, notifier, log)
		sched, err := digest.Schedule(cfg.Notify.DigestSchedule, cfg.Persistence.Timeout*6)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
		log.Info("digest scheduled", zap.String("spec", cfg.Notify.DigestSchedule))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if port == 0 {
		port = cfg.Server.Port
	}
	return srv.Start(ctx, port, cmd.OutOrStdout())
}
