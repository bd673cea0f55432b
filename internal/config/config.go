package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	DSN string
}

type ExecutionAPIConfig struct {
	URL string
}

type AccountAPIConfig struct {
	URL string
}

type MarketConfig struct {
	URL       string
	APIKey    string
	CacheTTL  time.Duration
	RateLimit int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SchedulerConfig struct {
	SweepInterval time.Duration
	SessionMaxAge time.Duration
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Server       ServerConfig
	Database     DatabaseConfig
	ExecutionAPI ExecutionAPIConfig
	AccountAPI   AccountAPIConfig
	Market       MarketConfig
	Redis        RedisConfig
	Scheduler    SchedulerConfig
	Logging      LoggingConfig
}

func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("DATABASE_DSN", "data/trades.db")
	viper.SetDefault("EXECUTION_API_URL", "")
	viper.SetDefault("ACCOUNT_API_URL", "")
	viper.SetDefault("MARKET_API_URL", "https://api.coingecko.com/api/v3")
	viper.SetDefault("MARKET_API_KEY", "")
	viper.SetDefault("MARKET_CACHE_TTL", "60s")
	viper.SetDefault("MARKET_RATE_LIMIT", 10)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SESSION_SWEEP_INTERVAL", "1h")
	viper.SetDefault("SESSION_MAX_AGE", "24h")
	viper.SetDefault("LOG_LEVEL", "info")

	cacheTTL, err := time.ParseDuration(viper.GetString("MARKET_CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid market cache ttl: %w", err)
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("SESSION_SWEEP_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid session sweep interval: %w", err)
	}

	maxAge, err := time.ParseDuration(viper.GetString("SESSION_MAX_AGE"))
	if err != nil {
		return nil, fmt.Errorf("invalid session max age: %w", err)
	}

	cfg := &AppConfig{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			DSN: viper.GetString("DATABASE_DSN"),
		},
		ExecutionAPI: ExecutionAPIConfig{
			URL: viper.GetString("EXECUTION_API_URL"),
		},
		AccountAPI: AccountAPIConfig{
			URL: viper.GetString("ACCOUNT_API_URL"),
		},
		Market: MarketConfig{
			URL:       viper.GetString("MARKET_API_URL"),
			APIKey:    viper.GetString("MARKET_API_KEY"),
			CacheTTL:  cacheTTL,
			RateLimit: viper.GetInt("MARKET_RATE_LIMIT"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Scheduler: SchedulerConfig{
			SweepInterval: sweepInterval,
			SessionMaxAge: maxAge,
		},
		Logging: LoggingConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN is required")
	}
	if cfg.ExecutionAPI.URL == "" {
		return nil, fmt.Errorf("EXECUTION_API_URL is required")
	}
	if cfg.AccountAPI.URL == "" {
		return nil, fmt.Errorf("ACCOUNT_API_URL is required")
	}

	return cfg, nil
}
