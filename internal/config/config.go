// Package config reads the server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/dukerupert/kinfolk/internal/analytics"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

type Config struct {
	Env            string   `env:"KINFOLK_ENV" env-default:"dev"`
	Port           string   `env:"KINFOLK_PORT" env-default:"8080"`
	DBPath         string   `env:"KINFOLK_DB_PATH" env-default:"kinfolk.db"`
	LogLevel       string   `env:"KINFOLK_LOG_LEVEL" env-default:"info"`
	LogFormat      string   `env:"KINFOLK_LOG_FORMAT" env-default:"text"`
	Locale         string   `env:"KINFOLK_LOCALE" env-default:"ru"`
	Timezone       string   `env:"KINFOLK_TIMEZONE" env-default:"Local"`
	AllowedOrigins []string `env:"KINFOLK_ALLOWED_ORIGINS" env-separator:","`

	Redis  RedisConfig
	Digest DigestConfig
	S3     S3Config
}

type RedisConfig struct {
	Addr     string `env:"KINFOLK_REDIS_ADDR"`
	Password string `env:"KINFOLK_REDIS_PASSWORD"`
	DB       int    `env:"KINFOLK_REDIS_DB" env-default:"0"`
}

type DigestConfig struct {
	Enabled  bool   `env:"KINFOLK_DIGEST_ENABLED" env-default:"true"`
	Schedule string `env:"KINFOLK_DIGEST_SCHEDULE" env-default:"0 0 18 * * 0"`
}

type S3Config struct {
	Endpoint  string `env:"KINFOLK_S3_ENDPOINT"`
	Region    string `env:"KINFOLK_S3_REGION" env-default:"us-east-1"`
	Bucket    string `env:"KINFOLK_S3_BUCKET"`
	AccessKey string `env:"KINFOLK_S3_ACCESS_KEY"`
	SecretKey string `env:"KINFOLK_S3_SECRET_KEY"`
	Prefix    string `env:"KINFOLK_S3_PREFIX" env-default:"digests/"`

	// Uploads are encrypted when set.
	Passphrase string `env:"KINFOLK_S3_PASSPHRASE"`
}

// Enabled reports whether digest uploads are configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Load reads and validates the configuration from environment variables.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values cleanenv cannot check on its own.
func (c *Config) Validate() error {
	if c.Env != EnvDev && c.Env != EnvProd {
		return fmt.Errorf("KINFOLK_ENV must be %q or %q, got %q", EnvDev, EnvProd, c.Env)
	}
	if _, err := analytics.ParseLocale(c.Locale); err != nil {
		return fmt.Errorf("KINFOLK_LOCALE: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.S3.Bucket != "" && !c.S3.Enabled() {
		return fmt.Errorf("KINFOLK_S3_BUCKET is set but S3 credentials are missing")
	}
	return nil
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("KINFOLK_TIMEZONE: %w", err)
	}
	return loc, nil
}

// Usage describes the supported environment variables.
func Usage() string {
	desc, err := cleanenv.GetDescription(new(Config), nil)
	if err != nil {
		return err.Error()
	}
	return desc
}
