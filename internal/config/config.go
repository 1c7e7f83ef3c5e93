package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN             string `env:"DATABASE_DSN,required=true"`
	RedisURL                string `env:"REDIS_URL,required=true"`
	APIPort                 int    `env:"API_PORT,default=8080"`
	LogLevel                string `env:"LOG_LEVEL,default=info"`
	DispatchBatchSize       int    `env:"DISPATCH_BATCH_SIZE,default=10"`
	DispatchMaxAttempts     int    `env:"DISPATCH_MAX_ATTEMPTS,default=3"`
	DispatchIntervalSeconds int    `env:"DISPATCH_INTERVAL_SECONDS,default=0"`
	DeliveryTimeoutSeconds  int    `env:"DELIVERY_TIMEOUT_SECONDS,default=10"`
	DeliveryRatePerSec      int    `env:"DELIVERY_RATE_PER_SEC,default=100"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
