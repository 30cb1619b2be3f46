// Package config содержит логику чтения конфигурации интернет-магазина.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	JWTSecret   string `env:"JWT_SECRET"`

	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	ResetCodeTTL      time.Duration `env:"RESET_CODE_TTL" envDefault:"15m"`
	LowStockThreshold int           `env:"LOW_STOCK_THRESHOLD" envDefault:"5"`
	AuthRatePerMinute int           `env:"AUTH_RATE_PER_MINUTE" envDefault:"20"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	BrevoAPIKey   string `env:"BREVO_API_KEY"`
	MailFromEmail string `env:"MAIL_FROM_EMAIL"`
	MailFromName  string `env:"MAIL_FROM_NAME" envDefault:"TheComfyCo"`

	FirebaseCredentialsJSON string `env:"FIREBASE_CREDENTIALS_JSON"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret used to sign bearer tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return cfg, nil
}

// S3Enabled сообщает, настроено ли объектное хранилище изображений.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}
