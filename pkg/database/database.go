package database

import (
	"fmt"

	"ledger/models"
	"ledger/pkg/config"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and applies the pool settings.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	return db, nil
}

// Migrate runs AutoMigrate model by model so one failure (typically a
// permission problem on a pre-existing table) does not block the others.
func Migrate(db *gorm.DB, log *zap.Logger) {
	// roles first so the users FK can be applied
	steps := []struct {
		table string
		model any
	}{
		{"roles", &models.Role{}},
		{"users", &models.User{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"payments", &models.Payment{}},
		{"categories", &models.Category{}},
		{"projects", &models.Project{}},
		{"accounts", &models.Account{}},
		{"contractors", &models.Contractor{}},
		{"transfers", &models.Transfer{}},
	}
	for _, s := range steps {
		if err := db.AutoMigrate(s.model); err != nil {
			log.Warn("migration warning", zap.String("table", s.table), zap.Error(err))
		}
	}
}

// SeedOptions controls Seed.
type SeedOptions struct {
	// SeedAdmin creates the admin account when it is missing.
	SeedAdmin     bool
	AdminPassword string
}

var masterRoles = []models.Role{
	{Name: models.RoleAdministrator, Description: "full access"},
	{Name: models.RoleAccountant, Description: "ledger editing"},
}

// Seed ensures the master roles exist and, when asked, the admin account.
func Seed(db *gorm.DB, log *zap.Logger, opts SeedOptions) error {
	for _, r := range masterRoles {
		role := r
		if err := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}
	if !opts.SeedAdmin {
		return nil
	}

	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}
	var role models.Role
	if err := db.Where("name = ?", models.RoleAdministrator).First(&role).Error; err != nil {
		return fmt.Errorf("find administrator role: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	rid := role.ID
	admin := models.User{Username: "admin", HashedPassword: hashed, RoleID: &rid}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info("seeded admin user", zap.String("username", "admin"))
	return nil
}

// Ping runs SELECT 1.
func Ping(db *gorm.DB) error {
	var one int
	return db.Raw("SELECT 1").Scan(&one).Error
}
