package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "sensorvision/libs/config"
)

// Config defines synthetic variable service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"SENSORVISION_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"SENSORVISION_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr      string        `yaml:"addr" env:"SENSORVISION_REDIS_ADDR"`
		Password  string        `yaml:"password" env:"SENSORVISION_REDIS_PASSWORD"`
		DB        int           `yaml:"db" env:"SENSORVISION_REDIS_DB"`
		LatestTTL time.Duration `yaml:"latest_ttl" env:"SENSORVISION_REDIS_LATEST_TTL"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret  string        `yaml:"jwt_secret" env:"SENSORVISION_JWT_SECRET"`
		TokenTTL   time.Duration `yaml:"token_ttl" env:"SENSORVISION_JWT_TTL"`
		BcryptCost int           `yaml:"bcrypt_cost" env:"SENSORVISION_BCRYPT_COST"`
	} `yaml:"auth"`
	WS struct {
		PingInterval time.Duration `yaml:"ping_interval" env:"SENSORVISION_WS_PING_INTERVAL"`
	} `yaml:"ws"`
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Redis.LatestTTL = 24 * time.Hour
	cfg.Auth.TokenTTL = time.Hour
	cfg.WS.PingInterval = 30 * time.Second

	if err := libconfig.Load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
