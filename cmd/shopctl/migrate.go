package main

import (
	"github.com/spf13/cobra"

	database "github.com/FACorreiaa/go-coffee-finder/app/db"
)

func init() {
	migrateCmd := &cobra.Command{Use: "migrate", Short: "Database migrations"}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			dbCfg, err := database.NewDatabaseConfig(&cfg, logger)
			if err != nil {
				return err
			}
			return database.RunMigrations(dbCfg.ConnectionURL, logger)
		},
	}
	migrateCmd.AddCommand(upCmd)

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			dbCfg, err := database.NewDatabaseConfig(&cfg, logger)
			if err != nil {
				return err
			}
			return database.RollbackMigrations(dbCfg.ConnectionURL, steps, logger)
		},
	}
	downCmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(downCmd)

	rootCmd.AddCommand(migrateCmd)
}
