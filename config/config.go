// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port   string `mapstructure:"PORT"`
	AppEnv string `mapstructure:"APP_ENV"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`
	SeedOnStart bool   `mapstructure:"SEED_ON_START"`

	JWTSecret  string `mapstructure:"JWT_SECRET"`
	BcryptCost int    `mapstructure:"BCRYPT_COST"`

	// RedisAddr selects the shared setup-token store when set; otherwise
	// tokens live in process memory.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	CloudinaryCloudName    string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey       string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret    string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryUploadPreset string `mapstructure:"CLOUDINARY_UPLOAD_PRESET"`

	SMTPHost  string `mapstructure:"SMTP_HOST"`
	SMTPPort  int    `mapstructure:"SMTP_PORT"`
	EmailUser string `mapstructure:"EMAIL_USER"`
	EmailPass string `mapstructure:"EMAIL_PASS"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeCurrency      string `mapstructure:"STRIPE_CURRENCY"`

	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogDev   bool   `mapstructure:"LOG_DEV"`

	NotifyMaxAttempts int `mapstructure:"NOTIFY_MAX_ATTEMPTS"`
}

var keys = []string{
	"PORT", "APP_ENV", "DATABASE_URL", "AUTO_MIGRATE", "SEED_ON_START",
	"JWT_SECRET", "BCRYPT_COST", "REDIS_ADDR",
	"CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET", "CLOUDINARY_UPLOAD_PRESET",
	"SMTP_HOST", "SMTP_PORT", "EMAIL_USER", "EMAIL_PASS",
	"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_CURRENCY",
	"CORS_ORIGINS", "LOG_LEVEL", "LOG_DEV", "NOTIFY_MAX_ATTEMPTS",
}

// Load reads .env if present, then the environment. Env vars win over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("PORT", "8000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("SEED_ON_START", false)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("STRIPE_CURRENCY", "mxn")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEV", false)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 5)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set")
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("config: JWT_SECRET must be set when APP_ENV=production")
		}
		cfg.JWTSecret = "dev_secret_key"
	}
	if cfg.IsProduction() && cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret == "" {
		return nil, errors.New("config: STRIPE_WEBHOOK_SECRET must be set when Stripe is enabled in production")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.NotifyMaxAttempts < 1 {
		return nil, errors.New("config: NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	cfg.StripeCurrency = strings.ToLower(cfg.StripeCurrency)

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func (c *Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}
