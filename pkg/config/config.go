package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Bitrix   BitrixConfig   `mapstructure:"bitrix"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	Port        string `mapstructure:"port"`
	Version     string `mapstructure:"version"`
	FrontendDir string `mapstructure:"frontend_dir"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type BitrixConfig struct {
	// WebhookURL is the inbound webhook base, e.g. https://portal.bitrix24.ru/rest/1/abc/.
	WebhookURL       string        `mapstructure:"webhook_url"`
	DealProjectField string        `mapstructure:"deal_project_field"`
	Timeout          time.Duration `mapstructure:"timeout"`
	CategoryTTL      time.Duration `mapstructure:"category_ttl"`
	GeneralCategory  string        `mapstructure:"general_category"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	AdminPassword string        `mapstructure:"admin_password"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DevJWTSecret is used when auth is enabled in development without a secret.
const DevJWTSecret = "dev-insecure-secret-change"

var envBindings = map[string][]string{
	"app.env":                   {"APP_ENV"},
	"app.port":                  {"PORT"},
	"app.version":               {"APP_VERSION"},
	"app.frontend_dir":          {"FRONTEND_DIR"},
	"database.dsn":              {"DB_DSN", "DATABASE_URL"},
	"database.auto_migrate":     {"DB_AUTO_MIGRATE"},
	"database.max_open_conns":   {"DB_MAX_OPEN_CONNS"},
	"database.max_idle_conns":   {"DB_MAX_IDLE_CONNS"},
	"bitrix.webhook_url":        {"BITRIX_WEBHOOK_URL"},
	"bitrix.deal_project_field": {"BITRIX_DEAL_PROJECT_FIELD"},
	"bitrix.timeout":            {"BITRIX_TIMEOUT"},
	"bitrix.category_ttl":       {"BITRIX_CATEGORY_TTL"},
	"bitrix.general_category":   {"BITRIX_GENERAL_CATEGORY"},
	"redis.addr":                {"REDIS_ADDR"},
	"redis.password":            {"REDIS_PASSWORD"},
	"redis.db":                  {"REDIS_DB"},
	"auth.enabled":              {"AUTH_ENABLED"},
	"auth.jwt_secret":           {"JWT_SECRET"},
	"auth.access_ttl":           {"AUTH_ACCESS_TTL"},
	"auth.refresh_ttl":          {"AUTH_REFRESH_TTL"},
	"auth.admin_password":       {"ADMIN_PASSWORD"},
	"log.level":                 {"LOG_LEVEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.port", "3001")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.frontend_dir", "frontend")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("bitrix.timeout", 15*time.Second)
	v.SetDefault("bitrix.category_ttl", 10*time.Minute)
	v.SetDefault("bitrix.general_category", "General")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.access_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_ttl", 30*24*time.Hour)
	v.SetDefault("auth.admin_password", "admin123")
	v.SetDefault("log.level", "info")
}

// Load reads ./.env (without overriding the environment), then the optional
// YAML file named by LEDGER_CONFIG, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("LEDGER_CONFIG"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Bitrix.WebhookURL = strings.TrimSpace(cfg.Bitrix.WebhookURL)
	cfg.Bitrix.DealProjectField = strings.TrimSpace(cfg.Bitrix.DealProjectField)
	return &cfg, cfg.Validate()
}

func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.App.Env)
	return env == "development" || env == "dev"
}

// Validate rejects combinations the server cannot run with.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("AUTH_ENABLED requires JWT_SECRET outside development")
		}
		c.Auth.JWTSecret = DevJWTSecret
	}
	if c.Bitrix.Timeout < 0 || c.Bitrix.CategoryTTL < 0 {
		return errors.New("bitrix durations must not be negative")
	}
	return nil
}

// RequireDSN is called by everything that needs the database.
func (c *Config) RequireDSN() error {
	if c.Database.DSN == "" {
		return errors.New("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN or DATABASE_URL")
	}
	return nil
}
