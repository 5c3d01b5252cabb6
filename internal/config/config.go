package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines charge controller configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"CP_HTTP_PORT"`
	} `yaml:"http"`
	Charger struct {
		IdTag string `yaml:"idTag" env:"CP_CHARGER_ID_TAG"`
	} `yaml:"charger"`
	WebSocket struct {
		PingIntervalSeconds int `yaml:"pingIntervalSeconds" env:"CP_PING_INTERVAL"`
		WriteTimeoutSeconds int `yaml:"writeTimeoutSeconds" env:"CP_WRITE_TIMEOUT"`
		CallTimeoutSeconds  int `yaml:"callTimeoutSeconds" env:"CP_CALL_TIMEOUT"`
	} `yaml:"websocket"`
	Trigger struct {
		AwaitTimeoutSeconds int `yaml:"awaitTimeoutSeconds" env:"CP_TRIGGER_TIMEOUT"`
	} `yaml:"trigger"`
	Redis struct {
		Addr     string `yaml:"addr" env:"CP_REDIS_ADDR"`
		Password string `yaml:"password" env:"CP_REDIS_PASSWORD"`
		Key      string `yaml:"key" env:"CP_REDIS_KEY"`
	} `yaml:"redis"`
	Database struct {
		DSN string `yaml:"dsn" env:"CP_POSTGRES_DSN"`
	} `yaml:"database"`
	Auth struct {
		Secret string `yaml:"secret" env:"CP_AUTH_SECRET"`
	} `yaml:"auth"`
}

// Load uses the shared config loader and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "9220"
	cfg.WebSocket.PingIntervalSeconds = 30
	cfg.WebSocket.WriteTimeoutSeconds = 15
	cfg.WebSocket.CallTimeoutSeconds = 30
	cfg.Trigger.AwaitTimeoutSeconds = 30
	cfg.Redis.Key = "chargepilot:sessions"

	if err := loadInto(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Charger.IdTag) == "" {
		return nil, errors.New("config: charger idTag is required")
	}

	return cfg, nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "9220"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// PingInterval returns websocket ping interval.
func (c *Config) PingInterval() time.Duration {
	if c.WebSocket.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.WebSocket.PingIntervalSeconds) * time.Second
}

// WriteTimeout returns websocket write timeout.
func (c *Config) WriteTimeout() time.Duration {
	if c.WebSocket.WriteTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.WebSocket.WriteTimeoutSeconds) * time.Second
}

// CallTimeout bounds a single outbound OCPP call.
func (c *Config) CallTimeout() time.Duration {
	if c.WebSocket.CallTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.WebSocket.CallTimeoutSeconds) * time.Second
}

// TriggerAwaitTimeout bounds the wait for a triggered notification.
func (c *Config) TriggerAwaitTimeout() time.Duration {
	if c.Trigger.AwaitTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Trigger.AwaitTimeoutSeconds) * time.Second
}
