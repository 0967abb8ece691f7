// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
)

// Storage backends accepted in STORAGE_BACKEND.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Token types accepted in TOKEN_TYPE.
const (
	TokenPaseto = tokenpkg.TypePaseto
	TokenJWT    = tokenpkg.TypeJWT
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	DBSchemaPath        string        `mapstructure:"DB_SCHEMA_PATH"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	Environment         string        `mapstructure:"GO_ENV"`
	StorageBackend      string        `mapstructure:"STORAGE_BACKEND"`
	SeedPath            string        `mapstructure:"SEED_PATH"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	IdempotencyTTL      time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	MaxConflictRetries  int           `mapstructure:"MAX_CONFLICT_RETRIES"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("STORAGE_BACKEND", StoragePostgres)
	v.SetDefault("TOKEN_TYPE", TokenPaseto)
	v.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	v.SetDefault("IDEMPOTENCY_TTL", 24*time.Hour)
	v.SetDefault("MAX_CONFLICT_RETRIES", 3)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	switch c.StorageBackend {
	case StoragePostgres, StorageMemory:
	default:
		return c, fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.TokenType {
	case TokenPaseto, TokenJWT:
	default:
		return c, fmt.Errorf("unsupported TOKEN_TYPE %q", c.TokenType)
	}

	return c, nil
}
