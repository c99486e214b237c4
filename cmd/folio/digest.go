package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/folio/internal/db"
	"github.com/zulandar/folio/internal/notify"
)

func newDigestCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Send the unread message digest now",
		Long:  "Builds the digest of new contact messages and kanban stage counts, and posts it to the configured Slack and Discord channels.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, configPath, dryRun)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Folio config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest instead of sending it")
	return cmd
}

func runDigest(cmd *cobra.Command, configPath string, dryRun bool) error {
	out := cmd.OutOrStdout()

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

	notifier, err := notifierFromConfig(cfg)
	if err != nil {
		return err
	}
	if notifier == nil && !dryRun {
		return fmt.Errorf("no notifier configured: set notify.slack or notify.discord")
	}

	ctx := context.Background()
	if dryRun {
		r, err := notify.NewDigest(gormDB, notify.Nop{}, log).Build(ctx)
		if err != nil {
			return err
		}
		printReport(cmd, r)
		return nil
	}

	sent, err := notify.NewDigest(gormDB, notifier, log).Send(ctx)
	if err != nil {
		return err
	}
	if !sent {
		fmt.Fprintln(out, "No new messages, nothing sent.")
		return nil
	}
	fmt.Fprintln(out, "Digest sent.")
	return nil
}

func printReport(cmd *cobra.Command, r *notify.Report) {
	out := cmd.OutOrStdout()
	if r == nil {
		fmt.Fprintln(out, "No new messages.")
		return
	}
	e := r.Event()
	fmt.Fprintln(out, e.Title)
	if e.Body != "" {
		fmt.Fprintln(out, e.Body)
	}
	for _, f := range e.Fields {
		fmt.Fprintf(out, "  %-14s %s\n", f.Name, f.Value)
	}
}
