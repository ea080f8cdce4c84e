// Command ledgerctl is the operator CLI: migrations, users, monthly reports,
// CRM enrichment and exports.
package main

import (
	"context"
	"fmt"
	"os"

	"ledger/pkg/config"
	"ledger/pkg/database"
	"ledger/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Version = "dev"

// env is what every subcommand needs; built lazily so --help works without a database.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

func (e *env) openDB() (*gorm.DB, error) {
	if err := e.cfg.RequireDSN(); err != nil {
		return nil, err
	}
	return database.Open(e.cfg.Database)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operations tool for the payments ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(enrichCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and seed roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			database.Migrate(db, e.log)
			opts := database.SeedOptions{SeedAdmin: e.cfg.Auth.Enabled, AdminPassword: e.cfg.Auth.AdminPassword}
			if err := database.Seed(db, e.log, opts); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration and seeding completed")
			return nil
		},
	}
}
