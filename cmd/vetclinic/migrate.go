package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Create schemas and tables and apply pending SQL migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd.Context(), "up")
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the state of every SQL migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd.Context(), "status")
			},
		},
	)
	return cmd
}

func runMigrate(ctx context.Context, command string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	switch command {
	case "up":
		return database.Migrate(ctx, db, log)
	case "status":
		return database.MigrationStatus(ctx, db, log)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}
