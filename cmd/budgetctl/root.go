package main

import (
	"github.com/kdimtricp/budgetmanager/internal/config"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliContext is filled by the root command before any subcommand runs.
type cliContext struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
}

func RootCommand() *cobra.Command {
	cc := &cliContext{}

	rootCmd := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Budget manager maintenance CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cc.configPath, "config", "", "Path to YAML config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cc.configPath)
		if err != nil {
			return err
		}
		cc.cfg = cfg
		cc.log = logger.Must(cfg.Debug)
		return nil
	}

	rootCmd.AddCommand(
		migrateCommand(cc),
		cleanupCommand(cc),
		syncBudgetsCommand(cc),
		patternCommand(cc),
		checkAICommand(cc),
	)
	return rootCmd
}

func (cc *cliContext) openDB() (*database.DB, error) {
	return database.NewDB(cc.cfg.DatabaseConfig())
}
