package main

// Operational commands against the configured database:
//   go run ./cmd/admin migrate up
//   go run ./cmd/admin sweep-orphans --dry-run

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Resume builder maintenance commands",
	Long: `Maintenance commands for the resume builder API.

They read the same environment as the API server (DATABASE_URL and DB_* pool overrides).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		telemetry.SetLogger(telemetry.New(telemetry.Options{Service: cfg.ServiceName + "-admin", Env: cfg.Env}))
	},
}

var cfg config.Config

func main() {
	defer telemetry.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
}

func connect(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultAdminOptions()))
}
