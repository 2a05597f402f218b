package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"resume-builder/internal/shared/storage/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), db.RunMigrations)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), db.RollbackMigration)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), db.MigrationStatus)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sqlDB, err := connect(ctx)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return fn(ctx, sqlDB)
}
