package main

import (
	"TryOnGolang/database/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		return postgres.Migrate(cmd.Context(), db, logger)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
