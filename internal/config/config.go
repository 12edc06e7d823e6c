package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string
	LogLevel      string
	Location      *time.Location
	RulesFile     string
	Rules         Rules

	SMTP SMTPConfig

	AdminUsername string
	AdminPassword string
	SeedDemoUsers bool
}

// SMTPConfig: avisos por correo; sin Host no se envía nada.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RulesFile:     os.Getenv("CRM_RULES_FILE"),
		AdminUsername: getEnv("ADMIN_USERNAME", "gerente@crm.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "Gerente123!"),
		SeedDemoUsers: getEnv("SEED_DEMO_USERS", "true") == "true",
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getIntEnv("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "no-responder@crm.local"),
		},
	}

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	tz := getEnv("CRM_TIMEZONE", "America/Mexico_City")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid CRM_TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	cfg.Rules = rules

	return cfg, nil
}

// ValidateServer: valores que sólo necesita el servidor HTTP.
func (c *Config) ValidateServer() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is not set")
	}
	if len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 bytes")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
