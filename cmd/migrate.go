package cmd

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-coinwallet/app/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(_ *cobra.Command, _ []string) {
		runMigration("up", database.Migrate)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Run: func(_ *cobra.Command, _ []string) {
		runMigration("down", database.Rollback)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the migration status",
	Run: func(_ *cobra.Command, _ []string) {
		runMigration("status", database.Status)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func runMigration(action string, fn func(ctx context.Context, db *sql.DB, driver string) error) {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}()

	if err := fn(context.Background(), db, cfg.Database.Driver); err != nil {
		logrus.WithError(err).WithField("action", action).Fatal("Migration failed")
	}
	logrus.WithField("action", action).Info("Migration completed")
}
