package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"

	// MemoryDSN selects the in-process store instead of Postgres.
	MemoryDSN = "memory"
)

type HTTPConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// SeedMedicines populates the catalog of the in-memory store.
	SeedMedicines []string
}

type AuthConfig struct {
	AccessSecret string
}

type LedgerConfig struct {
	MaxRetries int
}

type LockConfig struct {
	Backend  string
	RedisURL string
	TTL      time.Duration
	Wait     time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Ledger      LedgerConfig
	Lock        LockConfig
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 7090)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("LEDGER_MAX_RETRIES", 3)
	v.SetDefault("LOCK_BACKEND", LockBackendMemory)
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("LOCK_WAIT", "5s")

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:               v.GetString("HTTP_HOST"),
			Port:               v.GetInt("HTTP_PORT"),
			CORSAllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			SeedMedicines:   parseList(v.GetString("DB_SEED_MEDICINES")),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Ledger: LedgerConfig{
			MaxRetries: v.GetInt("LEDGER_MAX_RETRIES"),
		},
		Lock: LockConfig{
			Backend:  strings.ToLower(v.GetString("LOCK_BACKEND")),
			RedisURL: v.GetString("REDIS_URL"),
			TTL:      v.GetDuration("LOCK_TTL"),
			Wait:     v.GetDuration("LOCK_WAIT"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.DB.DSN == MemoryDSN && cfg.IsProduction() {
		return fmt.Errorf("DB_DSN=memory is not allowed in production")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Ledger.MaxRetries < 0 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must not be negative")
	}
	switch cfg.Lock.Backend {
	case LockBackendMemory:
	case LockBackendRedis:
		if cfg.Lock.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when LOCK_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", cfg.Lock.Backend)
	}
	if cfg.Lock.TTL <= 0 || cfg.Lock.Wait <= 0 {
		return fmt.Errorf("LOCK_TTL and LOCK_WAIT must be positive")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
