package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/folio/internal/collection"
	"github.com/zulandar/folio/internal/db"
	"github.com/zulandar/folio/internal/ghimport"
	"github.com/zulandar/folio/internal/models"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import content from external sources",
	}
	cmd.AddCommand(newImportGitHubCmd())
	return cmd
}

func newImportGitHubCmd() *cobra.Command {
	var (
		configPath string
		owner      string
	)

	cmd := &cobra.Command{
		Use:   "github",
		Short: "Import public GitHub repositories as projects",
		Long:  "Adds every public, non-fork repository of the owner that is not already a project. Set GITHUB_TOKEN for higher rate limits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportGitHub(cmd, configPath, owner)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Folio config file")
	cmd.Flags().StringVar(&owner, "owner", "", "GitHub user (default: github.owner from config)")
	return cmd
}

func runImportGitHub(cmd *cobra.Command, configPath, owner string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	if owner == "" {
		owner = cfg.GitHub.Owner
	}
	if owner == "" {
		return fmt.Errorf("no owner: pass --owner or set github.owner")
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	projects := collection.New[*models.Project](
		collection.NewGormRemote[models.Project](gormDB, "display_order"),
		collection.Options{Name: "projects", Timeout: cfg.Persistence.Timeout, Logger: log})
	defer projects.Close()

	ctx := context.Background()
	im := ghimport.New(ghimport.NewClient(ctx, cfg.GitHub.Token), projects, log)
	res, err := im.Import(ctx, owner)
	if res != nil {
		for _, p := range res.Imported {
			fmt.Fprintf(out, "  + %s\n", p.Title)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d projects from %s (%d skipped)\n", len(res.Imported), owner, res.Skipped)
	return nil
}
