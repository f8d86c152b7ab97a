package main

import (
	"fmt"
	"strings"

	"github.com/kdimtricp/budgetmanager/internal/ai"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/patterns"
	"github.com/spf13/cobra"
)

func patternCommand(cc *cliContext) *cobra.Command {
	patternCmd := &cobra.Command{
		Use:   "pattern",
		Short: "Inspect learned supplier patterns",
	}

	patternCmd.AddCommand(&cobra.Command{
		Use:   "show <supplier>",
		Short: "Print the best stored pattern for a supplier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cc.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := patterns.NewService(database.NewPatternRepo(db), patterns.Config{}, cc.log)
			p, err := svc.GetPattern(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if p == nil {
				fmt.Fprintf(out, "No pattern stored for %q\n", args[0])
				return nil
			}

			fmt.Fprintf(out, "Supplier:   %s\n", p.SupplierName)
			fmt.Fprintf(out, "Confidence: %d\n", p.Confidence)
			fmt.Fprintf(out, "Sessions:   %d\n", p.LearningSessions)
			fmt.Fprintf(out, "Success:    %.2f\n", p.SuccessRate)
			for _, s := range p.Strategies {
				fmt.Fprintf(out, "  [%d] %s: %s\n", s.Priority, s.Type, s.Description)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, p.CustomPrompt)
			return nil
		},
	})
	return patternCmd
}

func checkAICommand(cc *cliContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "check-ai",
		Short: "Show the configured AI provider and recent extraction results",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			aiCfg := cc.cfg.AIConfig()
			if _, err := ai.NewProvider(aiCfg, nil); err != nil {
				fmt.Fprintf(out, "AI provider: not usable (%v)\n", err)
			} else {
				fmt.Fprintf(out, "AI provider: %s\n", aiCfg.Provider)
			}
			fmt.Fprintln(out)

			db, err := cc.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			recs, err := database.NewOCRRepo(db).ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "No OCR results yet")
				return nil
			}

			fmt.Fprintln(out, "Recent OCR results:")
			fmt.Fprintln(out, strings.Repeat("-", 19))
			for _, r := range recs {
				supplier := r.DetectedSupplierName
				if supplier == "" {
					supplier = "-"
				}
				fmt.Fprintf(out, "%s  %-30s %-20s %5.1f%%  %s/%s  %dms\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.Filename, supplier,
					r.Confidence, r.Engine, r.Model, r.ProcessingTimeMS)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recent results to show")
	return cmd
}
