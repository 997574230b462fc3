package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ストレージバックエンドの種別。
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

// MinJWTSecretLength はJWT署名鍵に要求する最小バイト数。
const MinJWTSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"todoman.db"`

	// Token
	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"todoman"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	JWTLeeway time.Duration `env:"JWT_LEEWAY" envDefault:"0s"`

	// Password
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	// Rate Limit
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitAuth    int `env:"RATE_LIMIT_AUTH" envDefault:"10"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	var missing []string
	if cfg.StorageBackend == StoragePostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.StorageBackend {
	case StoragePostgres, StorageSQLite, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be one of postgres, sqlite, memory: %q", c.StorageBackend))
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive: %s", c.JWTTTL))
	}
	if c.JWTLeeway < 0 {
		errs = append(errs, fmt.Errorf("JWT_LEEWAY must not be negative: %s", c.JWTLeeway))
	}
	// bcryptが受け付けるコストは4〜31。
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31: %d", c.BcryptCost))
	}
	if c.RateLimitGeneral <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_GENERAL must be positive: %d", c.RateLimitGeneral))
	}
	if c.RateLimitAuth <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_AUTH must be positive: %d", c.RateLimitAuth))
	}

	return errors.Join(errs...)
}
