package main

import (
	"fmt"

	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/spf13/cobra"
)

func migrateCommand(cc *cliContext) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cc.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			migrator := database.NewMigrator(db, cc.log)
			out := cmd.OutOrStdout()

			if status {
				list, err := migrator.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Migration Status:")
				fmt.Fprintln(out, "=================")
				for _, m := range list {
					state := "pending"
					if m.Applied {
						state = "applied"
					}
					fmt.Fprintf(out, "%s - %s [%s]\n", m.Version, m.Name, state)
				}
				return nil
			}

			applied, err := migrator.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Applied %d migration(s)\n", applied)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Show migration status only")
	return cmd
}
