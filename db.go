package main

import (
	"ledger/pkg/config"
	"ledger/pkg/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// initDB opens Postgres, optionally migrates, and seeds the master roles
// (plus the admin account when auth is on). Migration and seed problems are
// logged and do not stop the server.
func initDB(cfg *config.Config, log *zap.Logger, migrate bool) (*gorm.DB, error) {
	if err := cfg.RequireDSN(); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if migrate {
		database.Migrate(db, log)
	}
	opts := database.SeedOptions{SeedAdmin: cfg.Auth.Enabled, AdminPassword: cfg.Auth.AdminPassword}
	if err := database.Seed(db, log, opts); err != nil {
		log.Warn("seed warning", zap.Error(err))
	}
	return db, nil
}
