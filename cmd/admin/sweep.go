package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"resume-builder/internal/account"
	"resume-builder/internal/documents"
	"resume-builder/internal/identity"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/users"
)

var (
	sweepDryRun bool
	sweepMinAge time.Duration
)

var sweepCmd = &cobra.Command{
	Use:   "sweep-orphans",
	Short: "Delete documents whose owner no longer exists",
	Long: `Find resumes and cover letters whose owner has no user row and delete them.

Owners with a document updated within --min-age are left alone, and each
delete re-checks the user row. With --dry-run the orphans are only reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		sqlDB, err := connect(ctx)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		var stores []account.Store
		for _, coll := range documents.Collections() {
			stores = append(stores, account.Store{Collection: coll, Repo: documents.NewPGRepo(sqlDB, coll)})
		}
		svc := account.NewService(users.NewService(&users.PGRepo{DB: sqlDB}), stores, identity.NoopAdmin{}, config.DeletePolicyRetain, nil)
		svc.OrphanMinAge = sweepMinAge

		found, err := svc.SweepOrphans(ctx, sweepDryRun)
		if err != nil {
			return err
		}
		if found == nil {
			found = []account.Orphans{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "report orphans without deleting them")
	sweepCmd.Flags().DurationVar(&sweepMinAge, "min-age", 24*time.Hour, "skip owners with a document updated more recently than this")
}
