package main

import (
	"fmt"
	"time"

	"github.com/kdimtricp/budgetmanager/internal/ai"
	"github.com/kdimtricp/budgetmanager/internal/budgetsync"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/spf13/cobra"
)

func cleanupCommand(cc *cliContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale rasterized PDF pages from the temp directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge == 0 {
				maxAge = cc.cfg.Rasterizer.TempMaxAge
			}
			removed, err := ai.CleanupDir(cc.cfg.Rasterizer.TempDir, maxAge, cc.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d file(s) older than %s from %s\n",
				removed, maxAge, cc.cfg.Rasterizer.TempDir)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove files older than this (default from config)")
	return cmd
}

func syncBudgetsCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-budgets",
		Short: "Recompute consumed budgets from invoice positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cc.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ledger := database.NewLedgerRepo(db)
			projects, err := ledger.ListProjects(cmd.Context())
			if err != nil {
				return err
			}

			svc := budgetsync.NewService(ledger, time.Hour, nil, cc.log)
			for _, p := range projects {
				svc.Touch(p.ID)
			}
			corrections := svc.SyncOnce(cmd.Context())

			out := cmd.OutOrStdout()
			for _, c := range corrections {
				fmt.Fprintf(out, "%s: %s -> %s\n", c.ProjectID, c.Before.StringFixed(2), c.After.StringFixed(2))
			}
			fmt.Fprintf(out, "Checked %d project(s), corrected %d\n", len(projects), len(corrections))
			return nil
		},
	}
}
