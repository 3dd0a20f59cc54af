package main

import (
	"github.com/spf13/cobra"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.Setup(cfg.LogLevel, nil)

		db, err := database.Connect(cfg)
		if err != nil {
			return err
		}
		return database.Migrate(db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
